// Package media は保存済みのメディアパスを配信用URLに変換する。
package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Converter はメディアパスを配信用の絶対URLに変換する。
type Converter struct {
	base *url.URL
}

// NewConverter はbaseURLを起点とするConverterを生成する。
// baseURLはスキームとホストを含む絶対URLでなければならない。
func NewConverter(baseURL string) (*Converter, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid media base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("media base URL must be http or https: %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("media base URL has no host: %q", baseURL)
	}
	return &Converter{base: u}, nil
}

// URL はメディアパスを配信用URLに変換する。
// 空文字列はそのまま返す。既に絶対URLの場合は変換しない。
// Windows区切りの保存パスも/に正規化する。
func (c *Converter) URL(mediaPath string) string {
	p := strings.TrimSpace(mediaPath)
	if p == "" || c == nil {
		return p
	}
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}

	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean("/" + p)

	out := *c.base
	out.Path = path.Join("/", c.base.Path, cleaned)
	out.RawQuery = ""
	out.Fragment = ""
	return out.String()
}
