// Package cursor はユーザーごとのフィードのページネーション状態を管理する。
package cursor

import (
	"context"
	"fmt"

	"github.com/hitoshi/snapshare/internal/model"
	"github.com/hitoshi/snapshare/internal/repository"
)

// Manager はFeedCursorの読み書きとユーザー単位のロックを提供する。
// ストアに到達できない場合は既定値で代替せず、Unavailableエラーを返す。
type Manager struct {
	store  repository.CursorStore
	locker Locker
}

// NewManager は新しいManagerを生成する。lockerがnilの場合はプロセス内ロックを使う。
func NewManager(store repository.CursorStore, locker Locker) *Manager {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Manager{store: store, locker: locker}
}

// Read はユーザーのカーソルを返す。存在しない場合はnilを返す。
func (m *Manager) Read(ctx context.Context, userID string) (*model.FeedCursor, error) {
	c, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, model.NewUnavailableError("cursor store", err)
	}
	return c, nil
}

// Write はカーソル全体を書き込む。
func (m *Manager) Write(ctx context.Context, c *model.FeedCursor) error {
	if c == nil || c.UserID == "" {
		return fmt.Errorf("cursor write requires a user id")
	}
	if c.LastBatchPostIDs == nil {
		c.LastBatchPostIDs = []string{}
	}
	if err := m.store.Set(ctx, c); err != nil {
		return model.NewUnavailableError("cursor store", err)
	}
	return nil
}

// WithLock はユーザーのロックを保持したままfnを実行する。
// カーソルの読み込み・変更・書き戻しはこの中で行う。
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	unlock, err := m.locker.Lock(ctx, userID)
	if err != nil {
		return model.NewUnavailableError("cursor lock", err)
	}
	defer unlock()
	return fn(ctx)
}
