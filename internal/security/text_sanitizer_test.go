package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSanitize_StripsTags はタグが除去されテキストのみが残ることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "強調タグを除去", input: "<b>いいね</b>", want: "いいね"},
		{name: "リンクを除去", input: `<a href="https://example.com">見て</a>`, want: "見て"},
		{name: "scriptは中身ごと除去", input: "<script>alert(1)</script>こんにちは", want: "こんにちは"},
		{name: "styleは中身ごと除去", input: "<style>p{color:red}</style>ok", want: "ok"},
		{name: "イベント属性付きのimgを除去", input: `<img src=x onerror="alert(1)">写真`, want: "写真"},
		{name: "前後の空白を除去", input: "  hello  ", want: "hello"},
		{name: "プレーンテキストはそのまま", input: "素敵な写真ですね", want: "素敵な写真ですね"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewTextSanitizer()

	for _, in := range []string{"", "   ", "<p></p>", "<script>x</script>"} {
		if got := sanitizer.Sanitize(in); got != "" {
			t.Errorf("Sanitize(%q) = %q, want empty", in, got)
		}
	}
}

func TestSanitize_TruncatesLongText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize(strings.Repeat("あ", MaxTextLength+100))
	if n := utf8.RuneCountInString(got); n != MaxTextLength {
		t.Errorf("length = %d, want %d", n, MaxTextLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated text must remain valid UTF-8")
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"<b>太字</b>と<i>斜体</i>",
		"plain text",
		"<div><p>nested</p></div>",
	}
	for _, in := range inputs {
		first := sanitizer.Sanitize(in)
		second := sanitizer.Sanitize(first)
		if first != second {
			t.Errorf("Sanitize is not idempotent for %q: %q -> %q", in, first, second)
		}
	}
}
