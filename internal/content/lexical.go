// Package content はCMSのLexicalリッチテキストツリーの変換機能を提供する。
//
// Lexicalツリーは型付きノード（paragraph, heading, list, listitem, quote,
// code, link, linebreak, horizontalrule, テキスト）の入れ子構造で、
// プレーンテキスト抽出とHTML変換の2系統のコンバータを提供する。
// どちらの公開関数も不正な入力で失敗しない: 構造エラーは内部で処理し、
// 構造化ログに記録した上で空文字列に縮退する。壊れた記事1件が
// 一覧ページ全体を壊してはならないため。
package content

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
)

// document はLexicalシリアライズ形式のトップレベル構造。
type document struct {
	Root *root `json:"root"`
}

type root struct {
	Children []node `json:"children"`
}

// node はLexicalツリーの1ノードを表す。
// Textがnilでないノードはテキストノード、それ以外は要素ノードとして扱う。
// 未知のTypeは子のマークアップをそのまま通すパススルーとして扱う
// （CMS側のノード追加に対する前方互換のデフォルト）。
type node struct {
	Type     string      `json:"type"`
	Text     *string     `json:"text"`
	Format   int         `json:"format"`
	Tag      string      `json:"tag"`
	ListType string      `json:"listType"`
	URL      string      `json:"url"`
	Fields   *nodeFields `json:"fields"`
	Children []node      `json:"children"`
}

// nodeFields は内部ドキュメント参照リンクの追加フィールド。
type nodeFields struct {
	Doc *docRef `json:"doc"`
}

type docRef struct {
	URL string `json:"url"`
}

// テキストノードのformatビットマスク。各ビットは独立に適用される。
const (
	formatBold      = 1
	formatItalic    = 2
	formatUnderline = 4
)

// ToPlainText はLexicalツリーからプレーンテキストを抽出する。
// 書式は無視され、ブロック間は半角スペース1つで区切られる。
// 空・欠落・不正なツリーは空文字列に縮退する（エラーはログのみ）。
func ToPlainText(raw []byte) string {
	text, err := toPlainText(raw)
	if err != nil {
		slog.Warn("failed to extract text from lexical content",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return text
}

// toPlainText はToPlainTextの内部実装。
// テストで失敗を観測できるようエラーを返す。
func toPlainText(raw []byte) (string, error) {
	doc, err := parse(raw)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", nil
	}

	blocks := make([]string, 0, len(doc.Root.Children))
	for _, child := range doc.Root.Children {
		blocks = append(blocks, extractText(&child))
	}
	return strings.TrimSpace(strings.Join(blocks, " ")), nil
}

// extractText はノード配下のテキストを連結して返す。
// ブロック内のテキストノードは区切りなしで連結される。
func extractText(n *node) string {
	var sb strings.Builder
	if n.Text != nil {
		sb.WriteString(*n.Text)
	}
	for i := range n.Children {
		sb.WriteString(extractText(&n.Children[i]))
	}
	return sb.String()
}

// ToHTML はLexicalツリーをHTMLマークアップに変換する。
// テキスト内容はHTMLエスケープされる。呼び出し側は出力を
// security.MarkupSanitizerServiceに通してから応答に載せること。
// 空・欠落・不正なツリーは空文字列に縮退する（エラーはログのみ）。
func ToHTML(raw []byte) string {
	markup, err := toHTML(raw)
	if err != nil {
		slog.Warn("failed to convert lexical content to HTML",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return markup
}

// toHTML はToHTMLの内部実装。
// テストで失敗を観測できるようエラーを返す。
func toHTML(raw []byte) (string, error) {
	doc, err := parse(raw)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", nil
	}

	var sb strings.Builder
	for i := range doc.Root.Children {
		sb.WriteString(convertNode(&doc.Root.Children[i]))
	}
	return sb.String(), nil
}

// convertNode は1ノードをHTMLに変換する。
func convertNode(n *node) string {
	// テキストノード: formatビットを独立に適用する。
	// 入れ子はboldが最外、次にitalic、uが最内。
	if n.Text != nil {
		markup := html.EscapeString(*n.Text)
		if n.Format&formatUnderline != 0 {
			markup = "<u>" + markup + "</u>"
		}
		if n.Format&formatItalic != 0 {
			markup = "<em>" + markup + "</em>"
		}
		if n.Format&formatBold != 0 {
			markup = "<strong>" + markup + "</strong>"
		}
		return markup
	}

	// 子を持たない特殊ノード
	switch n.Type {
	case "linebreak":
		return "<br/>"
	case "horizontalrule":
		return "<hr/>"
	}

	var children strings.Builder
	for i := range n.Children {
		children.WriteString(convertNode(&n.Children[i]))
	}
	inner := children.String()

	switch n.Type {
	case "paragraph":
		return "<p>" + inner + "</p>"
	case "heading":
		tag := n.Tag
		if !isHeadingTag(tag) {
			tag = "h2"
		}
		return "<" + tag + ">" + inner + "</" + tag + ">"
	case "list":
		tag := "ul"
		if n.ListType == "number" {
			tag = "ol"
		}
		return "<" + tag + ">" + inner + "</" + tag + ">"
	case "listitem":
		return "<li>" + inner + "</li>"
	case "quote":
		return "<blockquote>" + inner + "</blockquote>"
	case "code":
		return "<code>" + inner + "</code>"
	case "link":
		return `<a href="` + html.EscapeString(resolveLinkURL(n)) + `">` + inner + "</a>"
	default:
		// 未知のノード型: 子のマークアップをラップせずに通す
		return inner
	}
}

// resolveLinkURL はリンクノードのhrefを解決する。
// url → fields.doc.url（内部ドキュメント参照）→ "#" の順でフォールバックする。
func resolveLinkURL(n *node) string {
	if n.URL != "" {
		return n.URL
	}
	if n.Fields != nil && n.Fields.Doc != nil && n.Fields.Doc.URL != "" {
		return n.Fields.Doc.URL
	}
	return "#"
}

// parse はLexicalシリアライズ形式をデコードする。
// 空入力およびroot/children欠落はエラーではなくnilを返す（空出力に縮退）。
func parse(raw []byte) (*document, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("invalid lexical JSON: %w", err)
	}
	if doc.Root == nil || doc.Root.Children == nil {
		return nil, nil
	}
	return &doc, nil
}

// isHeadingTag は見出しタグとして妥当な値かを検証する。
func isHeadingTag(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
