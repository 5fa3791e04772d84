package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/snapshare/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindActiveByID は指定IDの未アーカイブユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindActiveByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var profileImg sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, first_name, last_name, profile_img, is_private, archived, created_at, updated_at
		 FROM users WHERE id::text = $1 AND archived = false`,
		id,
	).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &profileImg,
		&user.IsPrivate, &user.Archived, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	user.ProfileImg = nullStringValue(profileImg)

	return user, nil
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
