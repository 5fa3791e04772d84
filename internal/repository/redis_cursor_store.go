package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/snapshare/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCursorStore はRedisを使用したフィードカーソルの保存先。
// 1ユーザー1キーでFeedCursor全体をJSONとして保存する。
type RedisCursorStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCursorStore はRedisCursorStoreを生成する。ttlが0以下の場合は失効させない。
func NewRedisCursorStore(rdb redis.UniversalClient, ttl time.Duration) *RedisCursorStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCursorStore{
		rdb:    rdb,
		prefix: "snapshare:feed:cursor:",
		ttl:    ttl,
	}
}

func (s *RedisCursorStore) key(userID string) string {
	return s.prefix + userID
}

// Get はカーソルを取得する。存在しない場合はnilを返す。
func (s *RedisCursorStore) Get(ctx context.Context, userID string) (*model.FeedCursor, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed cursor: %w", err)
	}

	var c model.FeedCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode feed cursor: %w", err)
	}
	if c.UserID == "" {
		c.UserID = userID
	}
	return &c, nil
}

// Set はカーソル全体を1回のSETで書き込む。
func (s *RedisCursorStore) Set(ctx context.Context, c *model.FeedCursor) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode feed cursor: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(c.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set feed cursor: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CursorStore = (*RedisCursorStore)(nil)
