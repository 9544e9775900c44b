// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はフィードに埋め込む記事HTMLをサニタイズする。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// エントリ表示に必要なタグと属性のみを通過させる。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// Atomフィードのcontent要素を組み立てる際に使用される。
type ContentSanitizer interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// classNamePattern はclass属性に許可する値。エントリ部品のスタイル用クラス名のみ。
var classNamePattern = regexp.MustCompile(`^[a-z][a-z0-9 -]*$`)

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: div, h2, p, br, span, time, a, strong, em
//   - class属性: 英小文字・数字・ハイフンのみ
//   - timeのdatetime属性を許可
//   - aのhref属性: http/httpsの絶対URLのみ（フィードリーダーでは相対URLが解決できない）
//   - script, iframe, style および全てのon*イベント属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("div", "h2", "p", "br", "span", "time", "strong", "em")
	p.AllowAttrs("class").Matching(classNamePattern).OnElements("div", "h2", "p", "span")
	p.AllowAttrs("datetime").Matching(bluemonday.ISO8601).OnElements("time")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
