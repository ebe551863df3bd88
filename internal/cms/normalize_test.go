package cms

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/corvex/siteapi/internal/security"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer("https://cms.example.com", 200, security.NewMarkupSanitizer())
}

func lexicalBody(text string) json.RawMessage {
	return json.RawMessage(`{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"` + text + `"}]}]}}`)
}

func TestFromPayload_BasicMapping(t *testing.T) {
	n := newTestNormalizer(t)
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	post := n.FromPayload(&PayloadPost{
		ID:          "42",
		Title:       "Launch Post",
		Slug:        "launch-post",
		PublishedAt: &published,
		Content:     lexicalBody("Hello launch readers"),
		Categories:  []PayloadTerm{{Title: "News", Slug: "news"}},
	})

	if post.ID != "42" {
		t.Errorf("ID = %q, want %q", post.ID, "42")
	}
	if post.Slug != "launch-post" {
		t.Errorf("Slug = %q", post.Slug)
	}
	if !post.PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", post.PublishedAt, published)
	}
	if post.Excerpt != "Hello launch readers" {
		t.Errorf("Excerpt = %q", post.Excerpt)
	}
	if post.BodyHTML != "<p>Hello launch readers</p>" {
		t.Errorf("BodyHTML = %q", post.BodyHTML)
	}
	if post.ReadingTime != "1 min read" {
		t.Errorf("ReadingTime = %q", post.ReadingTime)
	}
	if len(post.Categories) != 1 || post.Categories[0].Name != "News" || post.Categories[0].Slug != "news" {
		t.Errorf("Categories = %+v", post.Categories)
	}
}

// publishedAtがnullの場合はcreatedAtにフォールバックする
func TestFromPayload_FallsBackToCreatedAt(t *testing.T) {
	n := newTestNormalizer(t)
	created := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	post := n.FromPayload(&PayloadPost{
		ID:        "1",
		Title:     "Draft-ish",
		Slug:      "draft-ish",
		CreatedAt: created,
	})

	if !post.PublishedAt.Equal(created) {
		t.Errorf("PublishedAt = %v, want createdAt %v", post.PublishedAt, created)
	}
}

// 相対ヒーロー画像パスがベースURLに対して絶対URLに解決されることを検証
func TestFromPayload_ResolvesRelativeHeroImage(t *testing.T) {
	// ベースURLの末尾スラッシュは除去されるため二重スラッシュにはならない
	n := NewNormalizer("https://cms.example.com/", 200, security.NewMarkupSanitizer())

	post := n.FromPayload(&PayloadPost{
		ID:    "1",
		Title: "Post",
		Slug:  "post",
		HeroImage: &PayloadMedia{
			URL: "/media/x.png",
			Alt: "hero",
		},
	})

	if post.FeaturedImage == nil {
		t.Fatal("FeaturedImage is nil")
	}
	if post.FeaturedImage.URL != "https://cms.example.com/media/x.png" {
		t.Errorf("URL = %q, want %q", post.FeaturedImage.URL, "https://cms.example.com/media/x.png")
	}
	if post.FeaturedImage.Width != 1200 || post.FeaturedImage.Height != 630 {
		t.Errorf("dimensions = %dx%d, want defaults 1200x630", post.FeaturedImage.Width, post.FeaturedImage.Height)
	}
}

// 絶対URLはそのまま保持されることを検証
func TestFromPayload_KeepsAbsoluteImageURL(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromPayload(&PayloadPost{
		ID:    "1",
		Title: "Post",
		Slug:  "post",
		HeroImage: &PayloadMedia{
			URL:    "https://assets.example.net/hero.png",
			Width:  800,
			Height: 400,
		},
	})

	if post.FeaturedImage.URL != "https://assets.example.net/hero.png" {
		t.Errorf("URL = %q", post.FeaturedImage.URL)
	}
	if post.FeaturedImage.Width != 800 || post.FeaturedImage.Height != 400 {
		t.Errorf("dimensions = %dx%d, want 800x400", post.FeaturedImage.Width, post.FeaturedImage.Height)
	}
	// altが空ならタイトルにフォールバックする
	if post.FeaturedImage.Alt != "Post" {
		t.Errorf("Alt = %q, want title fallback", post.FeaturedImage.Alt)
	}
}

func TestFromPayload_AuthorFallbackChain(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name       string
		author     PayloadAuthor
		wantAvatar string
		wantInit   string
	}{
		{
			name: "明示的なプロフィール画像を最優先する",
			author: PayloadAuthor{
				Name:              "alice",
				ProfilePictureURL: "https://img.example.com/alice.png",
				Avatar:            &PayloadMedia{URL: "https://img.example.com/fallback.png"},
			},
			wantAvatar: "https://img.example.com/alice.png",
			wantInit:   "A",
		},
		{
			name: "プロフィール画像がなければavatarを使う",
			author: PayloadAuthor{
				Name:   "bob",
				Avatar: &PayloadMedia{URL: "/media/bob.png"},
			},
			wantAvatar: "https://cms.example.com/media/bob.png",
			wantInit:   "B",
		},
		{
			name:       "画像が一切なければイニシャルのみ",
			author:     PayloadAuthor{Name: "carol"},
			wantAvatar: "",
			wantInit:   "C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := n.FromPayload(&PayloadPost{
				ID:               "1",
				Title:            "Post",
				Slug:             "post",
				PopulatedAuthors: []PayloadAuthor{tt.author},
			})

			if post.Author.AvatarURL != tt.wantAvatar {
				t.Errorf("AvatarURL = %q, want %q", post.Author.AvatarURL, tt.wantAvatar)
			}
			if post.Author.Initial != tt.wantInit {
				t.Errorf("Initial = %q, want %q", post.Author.Initial, tt.wantInit)
			}
		})
	}
}

// 著者の欠落はデフォルト名とプレースホルダーで補う
func TestFromPayload_MissingAuthor(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromPayload(&PayloadPost{ID: "1", Title: "Post", Slug: "post"})

	if post.Author.Name != "Unknown Author" {
		t.Errorf("Name = %q, want %q", post.Author.Name, "Unknown Author")
	}
	if post.Author.Initial != "U" {
		t.Errorf("Initial = %q, want %q", post.Author.Initial, "U")
	}
}

// populatedAuthorsがauthorsより優先されることを検証
func TestFromPayload_PrefersPopulatedAuthors(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromPayload(&PayloadPost{
		ID:               "1",
		Title:            "Post",
		Slug:             "post",
		Authors:          []PayloadAuthor{{Name: "raw"}},
		PopulatedAuthors: []PayloadAuthor{{Name: "populated"}},
	})

	if post.Author.Name != "populated" {
		t.Errorf("Name = %q, want %q", post.Author.Name, "populated")
	}
}

func TestFromPayload_ExcerptTruncation(t *testing.T) {
	n := NewNormalizer("https://cms.example.com", 10, security.NewMarkupSanitizer())

	post := n.FromPayload(&PayloadPost{
		ID:      "1",
		Title:   "Post",
		Slug:    "post",
		Content: lexicalBody("This text is longer than ten characters"),
	})

	if post.Excerpt != "This text ..." {
		t.Errorf("Excerpt = %q, want truncated with ellipsis", post.Excerpt)
	}
}

func TestFromPayload_RelatedPostsShallowCopy(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromPayload(&PayloadPost{
		ID:    "1",
		Title: "Post",
		Slug:  "post",
		RelatedPosts: []PayloadRelatedRef{
			{ID: "2", Title: "Other", Slug: "other"},
		},
	})

	if len(post.RelatedPosts) != 1 {
		t.Fatalf("RelatedPosts length = %d, want 1", len(post.RelatedPosts))
	}
	rel := post.RelatedPosts[0]
	if rel.ID != "2" || rel.Slug != "other" || rel.Title != "Other" {
		t.Errorf("RelatedPosts[0] = %+v", rel)
	}
}

func TestFromPayload_SEOOverrides(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromPayload(&PayloadPost{
		ID:      "1",
		Title:   "Post Title",
		Slug:    "post",
		Content: lexicalBody("Body text"),
		Meta: &PayloadMeta{
			Description: "Custom description",
			Image:       &PayloadMedia{URL: "/media/og.png"},
		},
	})

	if post.SEO == nil {
		t.Fatal("SEO is nil")
	}
	// metaのtitleが空ならタイトルにフォールバックする
	if post.SEO.Title != "Post Title" {
		t.Errorf("SEO.Title = %q", post.SEO.Title)
	}
	if post.SEO.Description != "Custom description" {
		t.Errorf("SEO.Description = %q", post.SEO.Description)
	}
	if post.SEO.OGImageURL != "https://cms.example.com/media/og.png" {
		t.Errorf("SEO.OGImageURL = %q", post.SEO.OGImageURL)
	}
}

func TestFromGraphQL_BasicMapping(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromGraphQL(&GraphQLPost{
		ID:      "cG9zdDox",
		Title:   "WP Post",
		Slug:    "wp-post",
		Date:    "2026-02-10T08:30:00",
		Excerpt: "<p>Short summary</p>",
		Content: "<p>Full <strong>body</strong> here</p><script>alert(1)</script>",
		Categories: &gqlTermNodes{Nodes: []gqlTerm{
			{Name: "Guides", Slug: "guides"},
		}},
		Tags: &gqlTermNodes{Nodes: []gqlTerm{
			{Name: "Go", Slug: "go"},
		}},
	})

	if post.ID != "cG9zdDox" || post.Slug != "wp-post" {
		t.Errorf("identity = %q/%q", post.ID, post.Slug)
	}
	if post.Excerpt != "Short summary" {
		t.Errorf("Excerpt = %q, want tags stripped", post.Excerpt)
	}
	if strings.Contains(post.BodyHTML, "<script") {
		t.Errorf("BodyHTML contains script tag: %q", post.BodyHTML)
	}
	if !strings.Contains(post.BodyHTML, "<strong>body</strong>") {
		t.Errorf("BodyHTML = %q, want formatting preserved", post.BodyHTML)
	}
	if len(post.BodyContent) != 0 {
		t.Errorf("BodyContent = %q, want empty for HTML variant", string(post.BodyContent))
	}
	want := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	if !post.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", post.PublishedAt, want)
	}
	if len(post.Categories) != 1 || post.Categories[0].Slug != "guides" {
		t.Errorf("Categories = %+v", post.Categories)
	}
	if len(post.Tags) != 1 || post.Tags[0].Slug != "go" {
		t.Errorf("Tags = %+v", post.Tags)
	}
}

// WordPressの抜粋が空の場合は本文から導出される
func TestFromGraphQL_DerivesExcerptFromContent(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromGraphQL(&GraphQLPost{
		ID:      "1",
		Title:   "Post",
		Slug:    "post",
		Content: "<p>Body derived excerpt</p>",
	})

	if post.Excerpt != "Body derived excerpt" {
		t.Errorf("Excerpt = %q", post.Excerpt)
	}
}

func TestFromGraphQL_AuthorFallbackChain(t *testing.T) {
	n := newTestNormalizer(t)

	post := n.FromGraphQL(&GraphQLPost{
		ID:    "1",
		Title: "Post",
		Slug:  "post",
		Author: &gqlAuthorNode{Node: &GraphQLAuthor{
			Name:   "dave",
			Avatar: &gqlAvatar{URL: "https://gravatar.example.com/dave"},
		}},
	})

	if post.Author.AvatarURL != "https://gravatar.example.com/dave" {
		t.Errorf("AvatarURL = %q", post.Author.AvatarURL)
	}
	if post.Author.Initial != "D" {
		t.Errorf("Initial = %q, want %q", post.Author.Initial, "D")
	}
}

func TestParseGraphQLDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"タイムゾーンなし", "2026-02-10T08:30:00", time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)},
		{"RFC3339", "2026-02-10T08:30:00Z", time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)},
		{"空文字列はゼロ値", "", time.Time{}},
		{"不正な形式はゼロ値", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseGraphQLDate(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("parseGraphQLDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "A"},
		{"Bob", "B"},
		{"  carol  ", "C"},
		{"", "?"},
		{"   ", "?"},
	}

	for _, tt := range tests {
		if got := initialOf(tt.in); got != tt.want {
			t.Errorf("initialOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
