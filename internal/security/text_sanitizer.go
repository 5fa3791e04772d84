// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力したコメント本文からマークアップを除去する。
// bluemondayのStrictPolicyを使用し、タグはすべて取り除いてテキストのみを残す。
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLength はサニタイズ後の本文の最大文字数（rune数）。
const MaxTextLength = 2200

// TextSanitizer はユーザー入力テキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleの中身は出力しない。HTML特殊文字はエスケープされる。
	// MaxTextLengthを超える部分は切り捨てる。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はテキストをサニタイズする。
func (s *textSanitizer) Sanitize(raw string) string {
	text := strings.TrimSpace(s.policy.Sanitize(raw))
	if utf8.RuneCountInString(text) <= MaxTextLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:MaxTextLength]))
}
