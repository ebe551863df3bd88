package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corvex/siteapi/internal/model"
)

// fakePostService はPostServiceInterfaceのテスト実装。
type fakePostService struct {
	posts    []model.NormalizedPost
	err      error
	gotLimit int
	gotSlug  string
}

func (f *fakePostService) List(_ context.Context, limit int) ([]model.NormalizedPost, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func (f *fakePostService) GetBySlug(_ context.Context, slug string) (*model.NormalizedPost, error) {
	f.gotSlug = slug
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.posts {
		if f.posts[i].Slug == slug {
			return &f.posts[i], nil
		}
	}
	return nil, model.NewPostNotFoundError(slug)
}

// newPostRouter はテスト用に記事ルートのみを構成したルーターを返す。
func newPostRouter(svc *fakePostService) http.Handler {
	h := NewPostHandler(svc, newFakeCollector())
	r := chi.NewRouter()
	r.Get("/api/posts", h.ListPosts)
	r.Get("/api/posts/{slug}", h.GetPost)
	return r
}

func TestListPosts(t *testing.T) {
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakePostService{posts: []model.NormalizedPost{
		{
			ID:          "1",
			Slug:        "first",
			Title:       "First Post",
			Excerpt:     "Summary",
			ReadingTime: "3 min read",
			PublishedAt: published,
			Author:      model.Author{Name: "alice", Initial: "A"},
		},
	}}
	router := newPostRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=5", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", svc.gotLimit)
	}

	var body listPostsResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(body.Posts))
	}
	p := body.Posts[0]
	if p.Slug != "first" || p.Title != "First Post" {
		t.Errorf("post = %+v", p)
	}
	if p.ReadingTime != "3 min read" {
		t.Errorf("readingTime = %q", p.ReadingTime)
	}
	if p.Author.Name != "alice" || p.Author.Initial != "A" {
		t.Errorf("author = %+v", p.Author)
	}
	if p.PublishedAt == nil || !p.PublishedAt.Equal(published) {
		t.Errorf("publishedAt = %v", p.PublishedAt)
	}
}

// 記事ゼロでも200と空配列を返す
func TestListPosts_Empty(t *testing.T) {
	router := newPostRouter(&fakePostService{posts: []model.NormalizedPost{}})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if string(raw["posts"]) != "[]" {
		t.Errorf("posts = %s, want []", raw["posts"])
	}
}

func TestListPosts_InvalidLimit(t *testing.T) {
	router := newPostRouter(&fakePostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=abc", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// CMS障害は502で返し、空の成功応答に偽装しない
func TestListPosts_UpstreamFailure(t *testing.T) {
	router := newPostRouter(&fakePostService{err: model.NewUpstreamFetchError()})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestGetPost(t *testing.T) {
	svc := &fakePostService{posts: []model.NormalizedPost{
		{ID: "1", Slug: "first", Title: "First Post"},
	}}
	router := newPostRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/first", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.gotSlug != "first" {
		t.Errorf("slug = %q, want first", svc.gotSlug)
	}

	var body postResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Title != "First Post" {
		t.Errorf("title = %q", body.Title)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	router := newPostRouter(&fakePostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetPost_UpstreamFailure(t *testing.T) {
	router := newPostRouter(&fakePostService{err: model.NewUpstreamFetchError()})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/first", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}
