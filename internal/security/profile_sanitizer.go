// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer はクライアントから受け取ったプロフィール値を保存前に無害化する。
// プロフィール値はプレーンテキストとして保存するため、タグは除去し、
// 残ったテキストはエスケープせずにそのまま保持する。
package security

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrInvalidAvatarURL はアバターURLがhttp(s)の絶対URLでない場合のエラー。
var ErrInvalidAvatarURL = errors.New("avatar url must be an absolute http(s) url")

// ProfileSanitizer はプロフィール値のサニタイズ機能のインターフェース。
type ProfileSanitizer interface {
	// SanitizeText はHTMLタグを全て除去し、前後の空白を取り除いた文字列を返す。
	// タグ以外の &, <, " などの文字はそのまま残る。
	SanitizeText(raw string) string

	// SanitizeAvatarURL はアバターURLを検証して返す。空文字列は「未設定」として許可する。
	SanitizeAvatarURL(raw string) (string, error)
}

// profileSanitizer はProfileSanitizerの実装。
// bluemonday.Policyはスレッドセーフなので共有して使う。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はStrictPolicyに基づくProfileSanitizerを生成する。
func NewProfileSanitizer() ProfileSanitizer {
	return &profileSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *profileSanitizer) SanitizeText(raw string) string {
	// StrictPolicyの出力はHTMLエスケープ済みなので、プレーンテキストに戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

func (s *profileSanitizer) SanitizeAvatarURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAvatarURL, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", ErrInvalidAvatarURL
	}
	return u.String(), nil
}
