// Package thread は投稿のコメントスレッドを閲覧者との関係に基づく優先度順で組み立てる。
package thread

import (
	"sort"

	"github.com/hitoshi/snapshare/internal/model"
)

// 優先度ティア。値が小さいほど先に並ぶ。返信（depth 1）は各値+1になる。
const (
	TierSelf     = 1
	TierLiked    = 3
	TierFollowed = 5
	TierOther    = 7
)

// Tier はdepthにおけるnodeの優先度ティアを返す。
// 条件は 本人 → いいね済み → フォロー中 → その他 の順に評価する。
func Tier(depth int, node model.CommentNode) int {
	var tier int
	switch {
	case node.AuthoredByViewer:
		tier = TierSelf
	case node.LikedByViewer:
		tier = TierLiked
	case node.AuthorFollowedByViewer:
		tier = TierFollowed
	default:
		tier = TierOther
	}
	if depth > 0 {
		tier++
	}
	return tier
}

// sortByTier はティア昇順、作成日時降順で安定ソートする。同順位は取得順を維持する。
func sortByTier(nodes []model.CommentNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].PriorityTier != nodes[j].PriorityTier {
			return nodes[i].PriorityTier < nodes[j].PriorityTier
		}
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})
}

// OrderRoots はトップレベルコメントにティアを付与して並べ替えたコピーを返す。
func OrderRoots(roots []model.CommentNode) []model.CommentNode {
	ordered := make([]model.CommentNode, len(roots))
	for i, n := range roots {
		n.Depth = 0
		n.ParentCommentID = nil
		n.RootCommentID = n.CommentID
		n.PriorityTier = Tier(0, n)
		ordered[i] = n
	}
	sortByTier(ordered)
	return ordered
}

// pageRoots はトップレベルコメントをoffsetからlimit件に絞る。limitが0以下なら全件。
func pageRoots(roots []model.CommentNode, limit, offset int) []model.CommentNode {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(roots) {
		return []model.CommentNode{}
	}
	roots = roots[offset:]
	if limit > 0 && limit < len(roots) {
		roots = roots[:limit]
	}
	return roots
}

// Arrange はトップレベルコメントと返信を配信順の平坦な列に並べる。
//
// トップレベルはティア昇順・作成日時降順・取得順で並べる。ページ分割は呼び出し側でpageRootsを使って済ませておく。
// 各トップレベルの直後にその配下の返信をすべて、ティア昇順・作成日時降順で続ける。
// 返信はRootCommentIDで所属するトップレベルを判定し、depth 1として扱う。
// 所属先がrootsに含まれない返信は出力しない。
func Arrange(roots, replies []model.CommentNode) []model.CommentNode {
	paged := OrderRoots(roots)

	byRoot := make(map[string][]model.CommentNode, len(paged))
	for _, r := range paged {
		byRoot[r.CommentID] = nil
	}
	for _, n := range replies {
		if _, ok := byRoot[n.RootCommentID]; !ok {
			continue
		}
		n.Depth = 1
		n.PriorityTier = Tier(1, n)
		byRoot[n.RootCommentID] = append(byRoot[n.RootCommentID], n)
	}

	out := make([]model.CommentNode, 0, len(paged)+len(replies))
	for _, r := range paged {
		out = append(out, r)
		children := byRoot[r.CommentID]
		sortByTier(children)
		out = append(out, children...)
	}
	return out
}
