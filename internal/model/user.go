// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID         string
	Username   string
	FirstName  string
	LastName   string
	ProfileImg string
	IsPrivate  bool
	Archived   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションの発行は認証基盤の責務で、このサービスは検証のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Follow はフォロー関係（networkテーブルの1行）を表す。
// 非公開アカウントへのフォローは承認されるまでPendingになる。
type Follow struct {
	ID         string
	FollowerID string
	FolloweeID string
	Pending    bool
	Deleted    bool
	CreatedAt  time.Time
}
