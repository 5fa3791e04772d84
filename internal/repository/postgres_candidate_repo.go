package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/snapshare/internal/model"
	"github.com/lib/pq"
)

// PostgresCandidateRepo はPostgreSQLを使用したフィード候補投稿の取得元。
type PostgresCandidateRepo struct {
	db *sql.DB
}

// NewPostgresCandidateRepo はPostgresCandidateRepoを生成する。
func NewPostgresCandidateRepo(db *sql.DB) *PostgresCandidateRepo {
	return &PostgresCandidateRepo{db: db}
}

const candidateBaseQuery = `
		SELECT po.id, po.user_id, po.description, COALESCE(po.media, ''), po.created_at,
		       po.likes_nr, po.comments_nr,
		       COALESCE(el.engagement_nr, 0) AS engagement_like_nr,
		       COALESCE(ec.engagement_nr, 0) AS engagement_comment_nr,
		       COALESCE(u.profile_img, ''), u.username,
		       CONCAT(u.first_name, ' ', u.last_name) AS full_name,
		       (pl.id IS NOT NULL) AS liked_by_viewer
		FROM posts po
		INNER JOIN users u ON u.id = po.user_id AND u.archived = false
		INNER JOIN network n ON n.followee_id = po.user_id
		      AND n.follower_id = $1 AND n.pending = false AND n.deleted = false
		LEFT JOIN post_likes pl ON pl.post_id = po.id AND pl.user_id = $1 AND pl.deleted = false
		LEFT JOIN engagements el ON el.user_id1 = LEAST($1::uuid, po.user_id)
		      AND el.user_id2 = GREATEST($1::uuid, po.user_id) AND el.engagement_type = 'LIKE'
		LEFT JOIN engagements ec ON ec.user_id1 = LEAST($1::uuid, po.user_id)
		      AND ec.user_id2 = GREATEST($1::uuid, po.user_id) AND ec.engagement_type = 'COMMENT'
		WHERE po.archived = false`

// buildCandidateQuery はwindowの条件をプレースホルダ付きのSQLに変換する。
// 値はすべて引数として渡し、SQL文字列には埋め込まない。
func buildCandidateQuery(viewerID string, window model.CandidateWindow, limit, offset int) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(candidateBaseQuery)

	args := []interface{}{viewerID}
	argIndex := 2

	if window.After != nil {
		fmt.Fprintf(&sb, " AND po.created_at >= $%d", argIndex)
		args = append(args, *window.After)
		argIndex++
	}
	if window.Before != nil {
		fmt.Fprintf(&sb, " AND po.created_at < $%d", argIndex)
		args = append(args, *window.Before)
		argIndex++
	}
	if len(window.ExcludeIDs) > 0 {
		fmt.Fprintf(&sb, " AND NOT (po.id::text = ANY($%d::text[]))", argIndex)
		args = append(args, pq.Array(window.ExcludeIDs))
		argIndex++
	}

	sb.WriteString(" ORDER BY po.created_at DESC, po.id DESC")

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	return sb.String(), args
}

// FetchCandidates は閲覧者がフォローしているユーザーの投稿をcreated_at降順で取得する。
func (r *PostgresCandidateRepo) FetchCandidates(
	ctx context.Context,
	viewerID string,
	window model.CandidateWindow,
	limit, offset int,
) ([]model.CandidatePost, error) {
	query, args := buildCandidateQuery(viewerID, window, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("候補投稿の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	candidates := []model.CandidatePost{}
	for rows.Next() {
		var c model.CandidatePost
		if err := rows.Scan(
			&c.PostID, &c.AuthorID, &c.Description, &c.Media, &c.CreatedAt,
			&c.LikeCount, &c.CommentCount,
			&c.EngagementLikeScore, &c.EngagementCommentScore,
			&c.AuthorProfileImg, &c.AuthorUsername, &c.AuthorFullName,
			&c.LikedByViewer,
		); err != nil {
			return nil, fmt.Errorf("候補投稿行の読み取りに失敗しました: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("候補投稿の走査に失敗しました: %w", err)
	}

	return candidates, nil
}

// compile-time interface check
var _ CandidateSource = (*PostgresCandidateRepo)(nil)
