// Package post は記事取得のドメインロジックを提供する。
package post

import (
	"context"
	"log/slog"

	"github.com/corvex/siteapi/internal/model"
)

// 一覧取得の件数の既定値と上限。
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Source は正規化済み記事の取得元を抽象化する。
// cmsパッケージのPayloadSourceとGraphQLSourceが実装する。
type Source interface {
	// ListPosts は記事を新しい順に最大limit件返す。
	ListPosts(ctx context.Context, limit int) ([]model.NormalizedPost, error)

	// GetPostBySlug はスラッグで記事を1件返す。見つからない場合はnilを返す。
	GetPostBySlug(ctx context.Context, slug string) (*model.NormalizedPost, error)
}

// Service は記事取得のサービス層。
// CMSの取得失敗は空の結果に偽装せず、明示的なエラーとして返す。
type Service struct {
	source Source
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(source Source) *Service {
	return &Service{source: source}
}

// List は公開済み記事の一覧を新しい順に返す。
// limitが0以下の場合は既定値、上限超過の場合は上限に丸める。
func (s *Service) List(ctx context.Context, limit int) ([]model.NormalizedPost, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	posts, err := s.source.ListPosts(ctx, limit)
	if err != nil {
		slog.Error("failed to list posts",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamFetchError()
	}

	// 記事ゼロは正常（nilではなく空スライスを返す）
	if posts == nil {
		posts = []model.NormalizedPost{}
	}

	return posts, nil
}

// GetBySlug はスラッグで記事を1件返す。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.NormalizedPost, error) {
	p, err := s.source.GetPostBySlug(ctx, slug)
	if err != nil {
		slog.Error("failed to get post",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamFetchError()
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(slug)
	}

	return p, nil
}
