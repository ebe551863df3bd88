package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corvex/siteapi/internal/metrics"
	"github.com/corvex/siteapi/internal/model"
)

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// List は公開済み記事の一覧を新しい順に返す。
	List(ctx context.Context, limit int) ([]model.NormalizedPost, error)
	// GetBySlug はスラッグで記事を1件返す。
	GetBySlug(ctx context.Context, slug string) (*model.NormalizedPost, error)
}

// PostHandler は記事取得のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	metrics metrics.MetricsCollector
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, collector metrics.MetricsCollector) *PostHandler {
	return &PostHandler{
		service: service,
		metrics: collector,
	}
}

// authorResponse は著者情報のAPIレスポンス。
type authorResponse struct {
	Name      string `json:"name"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Initial   string `json:"initial"`
}

// imageResponse は画像情報のAPIレスポンス。
type imageResponse struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// categoryResponse はカテゴリ・タグのAPIレスポンス。
type categoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// seoResponse はSEOメタデータのAPIレスポンス。
type seoResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OGImageURL  string `json:"ogImageUrl,omitempty"`
}

// postResponse は正規化済み記事のAPIレスポンス。
type postResponse struct {
	ID            string             `json:"id"`
	Slug          string             `json:"slug"`
	Title         string             `json:"title"`
	Excerpt       string             `json:"excerpt"`
	Content       json.RawMessage    `json:"content,omitempty"`
	ContentHTML   string             `json:"contentHtml,omitempty"`
	ReadingTime   string             `json:"readingTime"`
	PublishedAt   *time.Time         `json:"publishedAt,omitempty"`
	Author        authorResponse     `json:"author"`
	FeaturedImage *imageResponse     `json:"featuredImage,omitempty"`
	Categories    []categoryResponse `json:"categories,omitempty"`
	Tags          []categoryResponse `json:"tags,omitempty"`
	RelatedPosts  []postResponse     `json:"relatedPosts,omitempty"`
	SEO           *seoResponse       `json:"seo,omitempty"`
}

// listPostsResponse は記事一覧のAPIレスポンス。
type listPostsResponse struct {
	Posts []postResponse `json:"posts"`
}

// ListPosts は記事一覧を取得する。
// GET /api/posts?limit=N
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limit must be an integer",
				Category: "validation",
				Action:   "Specify limit as a positive integer.",
			})
			return
		}
		limit = parsed
	}

	start := time.Now()
	posts, err := h.service.List(r.Context(), limit)
	h.metrics.RecordCMSFetchLatency(time.Since(start))
	if err != nil {
		h.metrics.RecordCMSFetchFailure()
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordCMSFetchSuccess()

	resp := listPostsResponse{Posts: make([]postResponse, len(posts))}
	for i := range posts {
		resp.Posts[i] = toPostResponse(&posts[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetPost はスラッグ指定で記事を1件取得する。
// GET /api/posts/{slug}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	start := time.Now()
	post, err := h.service.GetBySlug(r.Context(), slug)
	h.metrics.RecordCMSFetchLatency(time.Since(start))
	if err != nil {
		// 記事未検出はCMS障害としてカウントしない
		if !isNotFound(err) {
			h.metrics.RecordCMSFetchFailure()
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordCMSFetchSuccess()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(post))
}

// isNotFound はエラーが記事未検出かを判定する。
func isNotFound(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == model.ErrCodePostNotFound
}

// toPostResponse はNormalizedPostをAPIレスポンスに変換する。
func toPostResponse(p *model.NormalizedPost) postResponse {
	resp := postResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Excerpt:     p.Excerpt,
		Content:     p.BodyContent,
		ContentHTML: p.BodyHTML,
		ReadingTime: p.ReadingTime,
		Author: authorResponse{
			Name:      p.Author.Name,
			Nickname:  p.Author.Nickname,
			AvatarURL: p.Author.AvatarURL,
			Initial:   p.Author.Initial,
		},
	}

	if !p.PublishedAt.IsZero() {
		published := p.PublishedAt
		resp.PublishedAt = &published
	}

	if p.FeaturedImage != nil {
		resp.FeaturedImage = &imageResponse{
			URL:    p.FeaturedImage.URL,
			Alt:    p.FeaturedImage.Alt,
			Width:  p.FeaturedImage.Width,
			Height: p.FeaturedImage.Height,
		}
	}

	resp.Categories = toCategoryResponses(p.Categories)
	resp.Tags = toCategoryResponses(p.Tags)

	for i := range p.RelatedPosts {
		resp.RelatedPosts = append(resp.RelatedPosts, toPostResponse(&p.RelatedPosts[i]))
	}

	if p.SEO != nil {
		resp.SEO = &seoResponse{
			Title:       p.SEO.Title,
			Description: p.SEO.Description,
			OGImageURL:  p.SEO.OGImageURL,
		}
	}

	return resp
}

// toCategoryResponses はカテゴリ・タグ一覧をAPIレスポンスに変換する。
func toCategoryResponses(categories []model.Category) []categoryResponse {
	if len(categories) == 0 {
		return nil
	}
	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = categoryResponse{Name: c.Name, Slug: c.Slug}
	}
	return out
}
