package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/snapshare/internal/model"
	"github.com/lib/pq"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
// スレッド取得（CommentSource）と書き込み系操作（CommentRepository）の両方を実装する。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// 閲覧者（$2）との関係を各行に付与するSELECT句。
const commentNodeSelect = `
		SELECT c.id, c.parent_comment_id, c.post_id, c.user_id, c.text, c.created_at, c.likes_nr,
		       (c.user_id = $2) AS authored_by_viewer,
		       (cl.id IS NOT NULL) AS liked_by_viewer,
		       (n.id IS NOT NULL) AS author_followed_by_viewer,
		       COALESCE(u.profile_img, ''), u.username,
		       CONCAT(u.first_name, ' ', u.last_name) AS full_name
		FROM comments c
		INNER JOIN users u ON u.id = c.user_id AND u.archived = false
		LEFT JOIN comment_likes cl ON cl.comment_id = c.id AND cl.user_id = $2 AND cl.deleted = false
		LEFT JOIN network n ON n.followee_id = c.user_id
		      AND n.follower_id = $2 AND n.pending = false AND n.deleted = false`

// FindActivePost は未アーカイブの投稿を取得する。投稿者がアーカイブ済みの場合も見つからない扱いにする。
func (r *PostgresCommentRepo) FindActivePost(ctx context.Context, postID string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, u.is_private, p.archived, p.created_at
		 FROM posts p
		 INNER JOIN users u ON u.id = p.user_id AND u.archived = false
		 WHERE p.id::text = $1 AND p.archived = false`,
		postID,
	).Scan(&post.ID, &post.UserID, &post.AuthorIsPrivate, &post.Archived, &post.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

// ListTopLevel は投稿のトップレベルコメントをcreated_at降順で取得する。
func (r *PostgresCommentRepo) ListTopLevel(ctx context.Context, postID, viewerID string) ([]model.CommentNode, error) {
	rows, err := r.db.QueryContext(ctx,
		commentNodeSelect+`
		WHERE c.post_id::text = $1 AND c.parent_comment_id IS NULL
		ORDER BY c.created_at DESC, c.id DESC`,
		postID, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("トップレベルコメントの取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanCommentNodes(rows)
}

// ListReplies はparentIDsのいずれかを親に持つ返信をcreated_at降順で取得する。
func (r *PostgresCommentRepo) ListReplies(ctx context.Context, postID, viewerID string, parentIDs []string) ([]model.CommentNode, error) {
	if len(parentIDs) == 0 {
		return []model.CommentNode{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		commentNodeSelect+`
		WHERE c.post_id::text = $1 AND c.parent_comment_id::text = ANY($3::text[])
		ORDER BY c.created_at DESC, c.id DESC`,
		postID, viewerID, pq.Array(parentIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("返信コメントの取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanCommentNodes(rows)
}

func scanCommentNodes(rows *sql.Rows) ([]model.CommentNode, error) {
	nodes := []model.CommentNode{}
	for rows.Next() {
		var n model.CommentNode
		var parentID sql.NullString
		if err := rows.Scan(
			&n.CommentID, &parentID, &n.PostID, &n.AuthorID, &n.Text, &n.CreatedAt, &n.LikeCount,
			&n.AuthoredByViewer, &n.LikedByViewer, &n.AuthorFollowedByViewer,
			&n.AuthorProfileImg, &n.AuthorUsername, &n.AuthorFullName,
		); err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}
		if parentID.Valid {
			p := parentID.String
			n.ParentCommentID = &p
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメントの走査に失敗しました: %w", err)
	}
	return nodes, nil
}

// FindByID はコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	c := &model.Comment{}
	var parentID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, post_id, user_id, parent_comment_id, text, likes_nr, created_at, updated_at
		 FROM comments WHERE id::text = $1`,
		id,
	).Scan(&c.ID, &c.PostID, &c.UserID, &parentID, &c.Text, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	if parentID.Valid {
		p := parentID.String
		c.ParentCommentID = &p
	}
	return c, nil
}

// Create はコメントを作成し、投稿のcomments_nrを同一トランザクションで加算する。
func (r *PostgresCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, parent_comment_id, text, likes_nr, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
		c.ID, c.PostID, c.UserID, c.ParentCommentID, c.Text, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET comments_nr = comments_nr + 1, updated_at = $2 WHERE id = $1`,
		c.PostID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to increment comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateText はコメント本文を更新する。
func (r *PostgresCommentRepo) UpdateText(ctx context.Context, id, text string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE comments SET text = $2, updated_at = $3 WHERE id::text = $1`,
		id, text, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// DeleteWithReplies はコメントを削除し、削除件数分だけ投稿のcomments_nrを減算する。
// 返信はparent_comment_idのCASCADEで削除されるため、事前に件数を数える。
func (r *PostgresCommentRepo) DeleteWithReplies(ctx context.Context, c *model.Comment) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var removed int64
	err = tx.QueryRowContext(ctx,
		`WITH RECURSIVE subtree AS (
		     SELECT id FROM comments WHERE id = $1
		     UNION ALL
		     SELECT c.id FROM comments c INNER JOIN subtree s ON c.parent_comment_id = s.id
		 )
		 SELECT count(*) FROM subtree`,
		c.ID,
	).Scan(&removed)
	if err != nil {
		return 0, fmt.Errorf("failed to count comment subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, c.ID); err != nil {
		return 0, fmt.Errorf("failed to delete comment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET comments_nr = GREATEST(comments_nr - $2, 0) WHERE id = $1`,
		c.PostID, removed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// compile-time interface check
var (
	_ CommentSource     = (*PostgresCommentRepo)(nil)
	_ CommentRepository = (*PostgresCommentRepo)(nil)
)
