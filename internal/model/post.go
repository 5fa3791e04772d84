// Package model はドメインモデルを定義する。
package model

import "time"

// CandidatePost はフィードのランキング対象として取得した投稿の射影。
// 取得後に変更しない値オブジェクトとして扱う。
type CandidatePost struct {
	PostID      string
	AuthorID    string
	Description string
	CreatedAt   time.Time
	LikeCount   int
	// CommentCount は投稿のコメント数（posts.comments_nr）。
	CommentCount int
	// EngagementLikeScore は閲覧者と投稿者の間のいいね交流数。
	EngagementLikeScore int
	// EngagementCommentScore は閲覧者と投稿者の間のコメント交流数。
	EngagementCommentScore int
	Media                  string // 配信URL変換前のメディアパス
	AuthorProfileImg       string
	AuthorUsername         string
	AuthorFullName         string
	LikedByViewer          bool
}

// ScoredPost はスコア付きの候補投稿。1ページ内の並び順のキーになる。
type ScoredPost struct {
	CandidatePost
	Score float64
}

// CandidateWindow は候補投稿取得時の構造化フィルタ。
// SQL文字列への埋め込みは行わず、リポジトリでプレースホルダに変換される。
type CandidateWindow struct {
	// After が指定された場合、created_at >= After の投稿のみ対象にする。
	After *time.Time
	// Before が指定された場合、created_at < Before の投稿のみ対象にする。
	Before *time.Time
	// ExcludeIDs に含まれる投稿は除外する。
	ExcludeIDs []string
}

// Post は投稿の最小限の情報（存在確認と権限判定用）。
type Post struct {
	ID              string
	UserID          string
	AuthorIsPrivate bool
	Archived        bool
	CreatedAt       time.Time
}
