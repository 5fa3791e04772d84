// Package model はドメインモデルを定義する。
package model

import "time"

// FeedCursor はユーザーごとのフィードのページネーション状態を表す。
// 共有KVS（Redis）に1ユーザー1レコードで保存され、フィード取得のたびに丸ごと上書きされる。
// 部分更新は行わない。明示的な削除はせず、ストアのTTLで失効する。
type FeedCursor struct {
	UserID string `json:"user_id"`
	// LastSeenAt はカーソル生成時に参照したチェックポイントの時刻。
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	// UnseenSupplyExhausted は未読（チェックポイント以降）の投稿を出し切ったかどうか。
	UnseenSupplyExhausted bool `json:"unseen_supply_exhausted"`
	// PreviousOffset は直前のリクエストで使用した（正規化後の）オフセット。
	PreviousOffset int `json:"previous_offset"`
	// LastBatchPostIDs は直近の未読フェーズで配信した投稿ID。既読フェーズの配信では更新しない。
	LastBatchPostIDs []string `json:"last_batch_post_ids"`
}

// FeedCheckpoint はユーザーがフィードを最後に見た時刻を表す。
// user_feedsテーブルに1ユーザー1行で永続化される。
type FeedCheckpoint struct {
	UserID     string
	LastSeenAt time.Time
}

// FeedPhase はフィード組み立て時の状態を表す。
type FeedPhase string

const (
	// FeedPhaseFirstVisit はチェックポイントが存在しない初回表示。
	FeedPhaseFirstVisit FeedPhase = "first_visit"
	// FeedPhaseUnseen はチェックポイント以降の投稿を配信するフェーズ。
	FeedPhaseUnseen FeedPhase = "unseen"
	// FeedPhaseBackfill は未読が不足したページの残りを既読側の投稿で埋めるフェーズ。
	FeedPhaseBackfill FeedPhase = "backfill"
	// FeedPhaseSteady は未読を出し切った後の通常ページネーション。
	FeedPhaseSteady FeedPhase = "steady"
)

// MaxPageOffset は受け付ける生オフセット（(page-1)*pageSize）の上限。
const MaxPageOffset = 1 << 30

// PageInRange はpageとpageSizeが1以上で、生オフセットがMaxPageOffsetを超えないかを返す。
// 乗算前に判定するため、巨大なpageでも桁あふれしない。
func PageInRange(page, pageSize int) bool {
	return page >= 1 && pageSize >= 1 && page-1 <= MaxPageOffset/pageSize
}
