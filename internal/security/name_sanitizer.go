package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer は外部サービスから取得した表示名からマークアップを除去する。
// 組織名は読み上げ文とリスト項目に埋め込まれるため、タグを一切残さない。
type NameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はタグをすべて除去するstrictポリシーのNameSanitizerを生成する。
func NewNameSanitizer() *NameSanitizer {
	return &NameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去し、エスケープされた実体参照を元の文字に戻して返す。
// 前後の空白は取り除く。
func (s *NameSanitizer) Sanitize(name string) string {
	stripped := s.policy.Sanitize(name)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
