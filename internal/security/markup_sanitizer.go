// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkupSanitizerService はLexicalツリーから変換したHTMLをサニタイズし、
// CMS経由で混入し得る危険なマークアップからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// コンバータが生成し得るタグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// MarkupSanitizerService はHTMLマークアップのサニタイズ機能のインターフェースを定義する。
// Lexical変換結果のAPI応答への格納前に使用される。
type MarkupSanitizerService interface {
	// Sanitize はHTMLマークアップをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, hr, h1-h6, ul, ol, li, blockquote, code, strong, em, u, a）
	// のみを通過させ、script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグのhrefは相対URL（内部ドキュメント参照と"#"フォールバック）も許可する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// markupSanitizer はMarkupSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type markupSanitizer struct {
	policy *bluemonday.Policy
}

// NewMarkupSanitizer はMarkupSanitizerServiceの新しいインスタンスを生成する。
// ポリシーはLexicalコンバータの出力タグ集合に合わせた許可リスト:
//   - ブロック要素: p, h1-h6, ul, ol, li, blockquote, br, hr
//   - インライン要素: strong, em, u, code
//   - リンク: aタグのhref属性。内部ドキュメント参照は相対パスになるため
//     相対URLを許可する。javascript:等の危険なスキームはbluemondayの
//     標準検証で除去される。
func NewMarkupSanitizer() *markupSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "code",
		"strong", "em", "u",
	)

	// aタグ: href属性を許可し、相対URLも通す（内部リンクと"#"フォールバック）
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.RequireNoReferrerOnLinks(true)

	return &markupSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLマークアップをサニタイズして安全なHTMLを返す。
func (s *markupSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
