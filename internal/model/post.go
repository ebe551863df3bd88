// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// NormalizedPost はCMSの種類に依存しない内部記事表現。
// Payload REST / WordPress GraphQL のどちらの応答形式からも
// ingestion境界で1度だけこの形式に変換され、以降の層は形式を区別しない。
// 取得のたびに新規構築され、構築後は変更しない。
type NormalizedPost struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string          // 本文から導出したプレーンテキスト（長さ上限あり）
	BodyContent json.RawMessage // レンダリング用に保持するLexicalツリーのシリアライズ（GraphQL変種では空）
	BodyHTML    string          // サニタイズ済みのレンダリング用マークアップ
	ReadingTime string
	PublishedAt time.Time

	Author        Author
	FeaturedImage *FeaturedImage
	Categories    []Category
	Tags          []Category
	RelatedPosts  []NormalizedPost // 取得元が埋め込んでいた場合のみ（再帰フェッチはしない）

	SEO *SEO
}

// Author は記事の著者情報を表す。
// AvatarURLはフォールバックチェーンで解決済みのURL。
// 画像が一切ない場合はInitialのみが設定される。
type Author struct {
	Name      string
	Nickname  string
	AvatarURL string
	Initial   string // 表示名の先頭1文字（大文字）のプレースホルダー
}

// FeaturedImage は記事のヒーロー画像を表す。
// URLは必ず絶対URLに解決済み。
type FeaturedImage struct {
	URL    string
	Alt    string
	Width  int
	Height int
}

// Category は記事のカテゴリまたはタグを表す。
type Category struct {
	Name string
	Slug string
}

// SEO はメタデータ生成用の上書き項目を表す。
// 記事レンダリングでは使用されない。
type SEO struct {
	Title       string
	Description string
	OGImageURL  string
}
