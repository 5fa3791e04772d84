// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/snapshare/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindActiveByID は指定IDの未アーカイブユーザーを取得する。見つからない場合はnilを返す。
	FindActiveByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの参照インターフェース。
// セッションの発行は認証基盤が行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// CandidateSource はフィードの候補投稿を提供するインターフェース。
// 閲覧者がフォローしている（承認済み・未削除）ユーザーの未アーカイブ投稿を
// created_at降順で返す。各行にはエンゲージメント数と閲覧者のいいね有無が付与される。
type CandidateSource interface {
	// FetchCandidates はwindowの条件に合う候補投稿をlimit/offsetの範囲で返す。
	// limitが0以下の場合は件数制限をしない。
	FetchCandidates(ctx context.Context, viewerID string, window model.CandidateWindow, limit, offset int) ([]model.CandidatePost, error)
}

// CheckpointRepository はフィードの既読チェックポイントの永続化インターフェース。
type CheckpointRepository interface {
	// Find はユーザーのチェックポイントを取得する。存在しない場合はnilを返す。
	Find(ctx context.Context, userID string) (*model.FeedCheckpoint, error)

	// Upsert はチェックポイントをat時刻で冪等にUPSERTする（user_id単位で後勝ち）。
	Upsert(ctx context.Context, userID string, at time.Time) (*model.FeedCheckpoint, error)
}

// CursorStore はフィードカーソルの保存先インターフェース。
// キーはユーザーID、値はFeedCursor全体で、部分更新は持たない。
type CursorStore interface {
	// Get はカーソルを取得する。存在しない場合はnilを返す。
	Get(ctx context.Context, userID string) (*model.FeedCursor, error)

	// Set はカーソル全体を上書き保存する。
	Set(ctx context.Context, cursor *model.FeedCursor) error
}

// CommentSource はコメントスレッドの取得元インターフェース。
// 閲覧者との関係（本人・いいね済み・フォロー中）を各行に付与して返す。
type CommentSource interface {
	// FindActivePost は未アーカイブの投稿を取得する。存在しない場合はnilを返す。
	FindActivePost(ctx context.Context, postID string) (*model.Post, error)

	// ListTopLevel は投稿のトップレベルコメントを取得順（created_at降順）で返す。
	ListTopLevel(ctx context.Context, postID, viewerID string) ([]model.CommentNode, error)

	// ListReplies は指定した親コメント群への直接の返信を返す。
	ListReplies(ctx context.Context, postID, viewerID string, parentIDs []string) ([]model.CommentNode, error)
}

// CommentRepository はコメントの書き込み系操作のインターフェース。
type CommentRepository interface {
	// FindByID はコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// Create はコメントを作成し、投稿のコメント数を同一トランザクションで加算する。
	Create(ctx context.Context, comment *model.Comment) error

	// UpdateText はコメント本文を更新する。
	UpdateText(ctx context.Context, id, text string, updatedAt time.Time) error

	// DeleteWithReplies はコメントとその配下の返信を削除し、投稿のコメント数を減算する。
	// 削除件数を返す。
	DeleteWithReplies(ctx context.Context, comment *model.Comment) (int64, error)
}

// NetworkRepository はフォローグラフの永続化インターフェース。
type NetworkRepository interface {
	// FindActive はfollower→followeeの未削除のフォロー関係を取得する。見つからない場合はnilを返す。
	FindActive(ctx context.Context, followerID, followeeID string) (*model.Follow, error)

	// IsAcceptedFollower はfollowerがfolloweeを承認済みでフォローしているかどうかを返す。
	IsAcceptedFollower(ctx context.Context, followerID, followeeID string) (bool, error)

	// Create はフォロー関係を作成する。
	Create(ctx context.Context, follow *model.Follow) error

	// SoftDelete はfollower→followeeの未削除のフォロー関係を論理削除する。
	SoftDelete(ctx context.Context, followerID, followeeID string) error
}

// EngagementRepository はユーザー間の交流数（engagementsテーブル）の集計インターフェース。
type EngagementRepository interface {
	// Recompute はいいね・コメントの交流数を再集計してengagementsテーブルを置き換える。
	// 更新した行数と削除した行数を返す。
	Recompute(ctx context.Context, at time.Time) (upserted int64, removed int64, err error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
