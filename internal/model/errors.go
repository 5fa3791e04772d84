// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, feed, comment, network, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因エラー（Unavailable のみ保持する）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound          = "POST_NOT_FOUND"
	ErrCodeCommentNotFound       = "COMMENT_NOT_FOUND"
	ErrCodeParentCommentNotFound = "PARENT_COMMENT_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeAlreadyFollowing      = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing          = "NOT_FOLLOWING"
	ErrCodeUnavailable           = "UNAVAILABLE"
	ErrCodeInvalidPage           = "INVALID_PAGE"
	ErrCodeInvalidComment        = "INVALID_COMMENT"
)

// NewPostNotFoundError は投稿未検出エラーを生成する。
// 削除（アーカイブ）済みの投稿も同じエラーになる。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "feed",
		Action:   "投稿IDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "comment",
		Action:   "コメントIDを確認してください。",
	}
}

// NewParentCommentNotFoundError は返信先コメントが投稿内に存在しない場合のエラーを生成する。
func NewParentCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeParentCommentNotFound,
		Message:  fmt.Sprintf("返信先のコメントが見つかりません: %s", commentID),
		Category: "comment",
		Action:   "返信先のコメントが同じ投稿のものか確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "network",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewForbiddenError は閲覧者に操作権限がない場合のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作は許可されていません: %s", reason),
		Category: "auth",
		Action:   "非公開アカウントの場合はフォローが承認されてから再度お試しください。",
	}
}

// NewAlreadyFollowingError は既にフォロー（または申請）済みの場合のエラーを生成する。
func NewAlreadyFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  "このユーザーは既にフォロー済み、またはフォロー申請中です。",
		Category: "network",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewNotFollowingError はフォロー関係が存在しない場合のエラーを生成する。
func NewNotFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  "このユーザーをフォローしていません。",
		Category: "network",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewUnavailableError はカーソルストア等の協調コンポーネントに到達できない場合のエラーを生成する。
// ページネーションの連続性を壊さないため、既定値での代替は行わずリクエストを失敗させる。
func NewUnavailableError(component string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeUnavailable,
		Message:  fmt.Sprintf("%s に接続できません。", component),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewInvalidPageError はページ指定が不正な場合のエラーを生成する。
func NewInvalidPageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページ指定です: %s", reason),
		Category: "validation",
		Action:   "page は1以上、件数は1以上の整数で指定してください。",
	}
}

// NewInvalidCommentError はコメント本文が不正な場合のエラーを生成する。
func NewInvalidCommentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidComment,
		Message:  fmt.Sprintf("無効なコメントです: %s", reason),
		Category: "validation",
		Action:   "コメント本文を入力してください。",
	}
}

// IsCode はerrがAPIErrorであり、指定コードを持つかどうかを返す。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
