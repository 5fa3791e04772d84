// Package ranking はフィード候補投稿のスコアリングと並び替えを提供する。
package ranking

import (
	"sort"

	"github.com/hitoshi/snapshare/internal/model"
)

// スコアの重み。合計は1.0。
const (
	WeightCreatedAt         = 0.50
	WeightEngagementComment = 0.20
	WeightEngagementLike    = 0.10
	WeightCommentCount      = 0.13
	WeightLikeCount         = 0.07
)

// Score は候補投稿のスコアを返す。候補のフィールドのみから決まる純粋関数。
// 作成時刻はUnixエポックのミリ秒で評価するため、新しさが支配的な重みになる。
func Score(p model.CandidatePost) float64 {
	return WeightCreatedAt*float64(p.CreatedAt.UnixMilli()) +
		WeightEngagementComment*float64(p.EngagementCommentScore) +
		WeightEngagementLike*float64(p.EngagementLikeScore) +
		WeightCommentCount*float64(p.CommentCount) +
		WeightLikeCount*float64(p.LikeCount)
}

// Rank は候補投稿にスコアを付けて降順に並べる。
// 同点は取得順を維持する（安定ソート）。二次キーは持たない。
func Rank(candidates []model.CandidatePost) []model.ScoredPost {
	scored := make([]model.ScoredPost, len(candidates))
	for i, c := range candidates {
		scored[i] = model.ScoredPost{CandidatePost: c, Score: Score(c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Slice はランキング済みの投稿からoffset位置からlimit件を返す。
// 範囲外の場合は空スライスを返す。
func Slice(ranked []model.ScoredPost, offset, limit int) []model.ScoredPost {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(ranked) {
		return []model.ScoredPost{}
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}

// Top は候補をランキングしてoffset位置からlimit件を返す。
func Top(candidates []model.CandidatePost, offset, limit int) []model.ScoredPost {
	return Slice(Rank(candidates), offset, limit)
}
