// Package security は投稿コンテンツのサニタイズ、画像データの検証、外部送信先の制限を提供する。
//
// 質問と回答の本文はリッチテキストエディタで書かれたHTMLとして受け取り、
// bluemondayの許可リストポリシーで保存前にサニタイズする。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿HTMLのサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに使える。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// 数式表示用のclass（KaTeXの katex, math-inline 等）のみ許可する。
var mathClassPattern = regexp.MustCompile(`^(?:[a-z][a-z0-9-]*)(?: [a-z][a-z0-9-]*)*$`)

var httpsOnlyPattern = regexp.MustCompile(`^https://`)

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, b, i, u, s, sub, sup, h1-h4, span, a, img
//   - spanとcodeのclass属性（数式レンダリング用）
//   - aタグ: https/httpのみ。target="_blank" と rel="noopener noreferrer" を自動付与
//   - imgのsrc属性: httpsスキームのみ
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "b", "i", "u", "s",
		"sub", "sup",
		"h1", "h2", "h3", "h4",
		"span",
	)
	p.AllowAttrs("class").Matching(mathClassPattern).OnElements("span", "code")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").Matching(httpsOnlyPattern).OnElements("img")
	p.AllowAttrs("alt").OnElements("img")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
