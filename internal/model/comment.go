// Package model はドメインモデルを定義する。
package model

import "time"

// CommentNode はスレッド配信用のコメント1件を表す。
// depth は0（投稿への直接コメント）または1（返信）で、より深い返信は1に平坦化される。
// リクエストを超えて永続化されない。
type CommentNode struct {
	CommentID       string
	ParentCommentID *string
	// RootCommentID は所属するトップレベルコメントのID。トップレベル自身は自分のID。
	RootCommentID string
	Depth         int
	PostID        string
	AuthorID      string
	Text          string
	CreatedAt     time.Time
	LikeCount     int

	// 閲覧者との関係。優先度ティアの算出に使う。
	AuthoredByViewer       bool
	LikedByViewer          bool
	AuthorFollowedByViewer bool

	PriorityTier int

	AuthorProfileImg string
	AuthorUsername   string
	AuthorFullName   string
}

// Comment は永続化されたコメントを表す。
type Comment struct {
	ID              string
	PostID          string
	UserID          string
	ParentCommentID *string
	Text            string
	LikeCount       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
