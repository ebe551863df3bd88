package cms

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/corvex/siteapi/internal/content"
	"github.com/corvex/siteapi/internal/model"
	"github.com/corvex/siteapi/internal/security"
)

// defaultAuthorName は著者情報が欠落している場合の表示名。
const defaultAuthorName = "Unknown Author"

// ヒーロー画像の寸法が欠落している場合のデフォルト（OGP標準サイズ）。
const (
	defaultImageWidth  = 1200
	defaultImageHeight = 630
)

// Normalizer はCMS応答をmodel.NormalizedPostに変換する。
// 変換はCMS変種ごとに1つのマッピング関数で行い、以降の層は形式を区別しない。
type Normalizer struct {
	baseURL    string // 相対アセットURLの解決先（末尾スラッシュなし）
	excerptMax int
	sanitizer  security.MarkupSanitizerService
	strip      *bluemonday.Policy // 抜粋用の全タグ除去ポリシー
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(baseURL string, excerptMax int, sanitizer security.MarkupSanitizerService) *Normalizer {
	return &Normalizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		excerptMax: excerptMax,
		sanitizer:  sanitizer,
		strip:      bluemonday.StrictPolicy(),
	}
}

// FromPayload はPayload CMSの記事をNormalizedPostに変換する。
func (n *Normalizer) FromPayload(p *PayloadPost) model.NormalizedPost {
	plain := content.ToPlainText(p.Content)

	publishedAt := p.CreatedAt
	if p.PublishedAt != nil {
		publishedAt = *p.PublishedAt
	}

	post := model.NormalizedPost{
		ID:          string(p.ID),
		Slug:        p.Slug,
		Title:       p.Title,
		Excerpt:     n.truncateExcerpt(plain),
		BodyContent: p.Content,
		BodyHTML:    n.sanitizer.Sanitize(content.ToHTML(p.Content)),
		ReadingTime: content.ReadingTime(p.Content),
		PublishedAt: publishedAt,
		Author:      n.payloadAuthor(p),
		Categories:  payloadTerms(p.Categories),
	}

	if p.HeroImage != nil && p.HeroImage.URL != "" {
		post.FeaturedImage = &model.FeaturedImage{
			URL:    n.absoluteURL(p.HeroImage.URL),
			Alt:    firstNonEmpty(p.HeroImage.Alt, p.Title),
			Width:  defaultDim(p.HeroImage.Width, defaultImageWidth),
			Height: defaultDim(p.HeroImage.Height, defaultImageHeight),
		}
	}

	if p.Meta != nil {
		seo := &model.SEO{
			Title:       firstNonEmpty(p.Meta.Title, p.Title),
			Description: firstNonEmpty(p.Meta.Description, post.Excerpt),
		}
		if p.Meta.Image != nil {
			seo.OGImageURL = n.absoluteURL(p.Meta.Image.URL)
		}
		post.SEO = seo
	}

	// 関連記事は取得元が埋め込んだ浅い参照のみを保持する（再帰フェッチはしない）
	for _, rel := range p.RelatedPosts {
		post.RelatedPosts = append(post.RelatedPosts, model.NormalizedPost{
			ID:    string(rel.ID),
			Title: rel.Title,
			Slug:  rel.Slug,
		})
	}

	return post
}

// FromGraphQL はWordPress GraphQLの記事をNormalizedPostに変換する。
// 本文はHTML文字列のため、BodyContentは空になりBodyHTMLのみが設定される。
func (n *Normalizer) FromGraphQL(p *GraphQLPost) model.NormalizedPost {
	plainBody := n.stripToText(p.Content)

	post := model.NormalizedPost{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Excerpt:     n.truncateExcerpt(n.stripToText(p.Excerpt)),
		BodyHTML:    n.sanitizer.Sanitize(p.Content),
		ReadingTime: content.ReadingTimeFromText(plainBody),
		PublishedAt: parseGraphQLDate(p.Date),
		Author:      n.graphqlAuthor(p),
	}

	// WordPressの抜粋が空の場合は本文から導出する
	if post.Excerpt == "" {
		post.Excerpt = n.truncateExcerpt(plainBody)
	}

	if p.FeaturedImage != nil && p.FeaturedImage.Node != nil && p.FeaturedImage.Node.SourceURL != "" {
		img := p.FeaturedImage.Node
		featured := &model.FeaturedImage{
			URL:    n.absoluteURL(img.SourceURL),
			Alt:    firstNonEmpty(img.AltText, p.Title),
			Width:  defaultImageWidth,
			Height: defaultImageHeight,
		}
		if img.MediaDetails != nil {
			featured.Width = defaultDim(img.MediaDetails.Width, defaultImageWidth)
			featured.Height = defaultDim(img.MediaDetails.Height, defaultImageHeight)
		}
		post.FeaturedImage = featured
	}

	if p.Categories != nil {
		post.Categories = graphqlTerms(p.Categories.Nodes)
	}
	if p.Tags != nil {
		post.Tags = graphqlTerms(p.Tags.Nodes)
	}

	if p.SEO != nil {
		seo := &model.SEO{
			Title:       firstNonEmpty(p.SEO.Title, p.Title),
			Description: firstNonEmpty(p.SEO.MetaDesc, post.Excerpt),
		}
		if p.SEO.OpengraphImage != nil {
			seo.OGImageURL = n.absoluteURL(p.SEO.OpengraphImage.SourceURL)
		}
		post.SEO = seo
	}

	return post
}

// payloadAuthor はPayload記事の著者を解決する。
// populatedAuthorsを優先し、プロフィール画像のフォールバックチェーンを適用する。
func (n *Normalizer) payloadAuthor(p *PayloadPost) model.Author {
	var raw *PayloadAuthor
	if len(p.PopulatedAuthors) > 0 {
		raw = &p.PopulatedAuthors[0]
	} else if len(p.Authors) > 0 {
		raw = &p.Authors[0]
	}

	if raw == nil {
		return model.Author{
			Name:    defaultAuthorName,
			Initial: initialOf(defaultAuthorName),
		}
	}

	name := firstNonEmpty(raw.Name, defaultAuthorName)

	// プロフィール画像のフォールバックチェーン:
	// 明示的なプロフィール画像 → avatarのURL → イニシャルのプレースホルダー。
	// 各段は前段が欠落している場合のみ試み、プレースホルダーは常に成立する。
	avatarURL := raw.ProfilePictureURL
	if avatarURL == "" && raw.Avatar != nil {
		avatarURL = raw.Avatar.URL
	}

	return model.Author{
		Name:      name,
		Nickname:  raw.Nickname,
		AvatarURL: n.absoluteURL(avatarURL),
		Initial:   initialOf(name),
	}
}

// graphqlAuthor はGraphQL記事の著者を解決する。フォールバックはpayloadAuthorと同じ。
func (n *Normalizer) graphqlAuthor(p *GraphQLPost) model.Author {
	var raw *GraphQLAuthor
	if p.Author != nil {
		raw = p.Author.Node
	}

	if raw == nil {
		return model.Author{
			Name:    defaultAuthorName,
			Initial: initialOf(defaultAuthorName),
		}
	}

	name := firstNonEmpty(raw.Name, defaultAuthorName)

	avatarURL := raw.ProfilePictureURL
	if avatarURL == "" && raw.Avatar != nil {
		avatarURL = raw.Avatar.URL
	}

	return model.Author{
		Name:      name,
		Nickname:  raw.Nickname,
		AvatarURL: n.absoluteURL(avatarURL),
		Initial:   initialOf(name),
	}
}

// absoluteURL は相対アセットURLを設定済みベースURLに対して絶対URLへ解決する。
// すでに絶対URLの場合はそのまま返す。ベースURLの末尾スラッシュは
// 生成時に除去済みのため二重スラッシュは発生しない。
func (n *Normalizer) absoluteURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return n.baseURL + u
}

// stripToText はHTML断片から全タグを除去しプレーンテキストを返す。
func (n *Normalizer) stripToText(htmlFragment string) string {
	return strings.TrimSpace(html.UnescapeString(n.strip.Sanitize(htmlFragment)))
}

// truncateExcerpt は抜粋を設定された最大長（ルーン数）に丸める。
// 超過時は"..."を付与する。
func (n *Normalizer) truncateExcerpt(text string) string {
	if utf8.RuneCountInString(text) <= n.excerptMax {
		return text
	}
	runes := []rune(text)
	return string(runes[:n.excerptMax]) + "..."
}

// parseGraphQLDate はWordPress GraphQLの日付文字列をパースする。
// タイムゾーンなしの形式とRFC3339の両方を受け入れ、失敗時はゼロ値を返す。
func parseGraphQLDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

// payloadTerms はPayloadのカテゴリ参照をmodel.Categoryに変換する。
func payloadTerms(terms []PayloadTerm) []model.Category {
	if len(terms) == 0 {
		return nil
	}
	out := make([]model.Category, len(terms))
	for i, t := range terms {
		out[i] = model.Category{
			Name: firstNonEmpty(t.Title, t.Slug),
			Slug: t.Slug,
		}
	}
	return out
}

// graphqlTerms はGraphQLのカテゴリ・タグ参照をmodel.Categoryに変換する。
func graphqlTerms(terms []gqlTerm) []model.Category {
	if len(terms) == 0 {
		return nil
	}
	out := make([]model.Category, len(terms))
	for i, t := range terms {
		out[i] = model.Category{Name: t.Name, Slug: t.Slug}
	}
	return out
}

// initialOf は表示名の先頭1文字を大文字にして返す。
// 空の名前には"?"を返し、この段は決して失敗しない。
func initialOf(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	return strings.ToUpper(string(r))
}

// defaultDim は寸法が欠落（非正）の場合にデフォルト値を返す。
func defaultDim(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// firstNonEmpty は最初の空でない文字列を返す。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
