package cms

import (
	"context"
	"fmt"

	"github.com/corvex/siteapi/internal/model"
)

// PayloadSource はPayload CMSを取得元とする正規化済み記事のソース。
// クライアントの取得結果をingestion境界で正規化して返す。
type PayloadSource struct {
	client     *PayloadClient
	normalizer *Normalizer
}

// NewPayloadSource はPayloadSourceの新しいインスタンスを生成する。
func NewPayloadSource(client *PayloadClient, normalizer *Normalizer) *PayloadSource {
	return &PayloadSource{client: client, normalizer: normalizer}
}

// ListPosts は公開済み記事を新しい順に最大limit件、正規化して返す。
func (s *PayloadSource) ListPosts(ctx context.Context, limit int) ([]model.NormalizedPost, error) {
	raw, err := s.client.FetchPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("payload source: %w", err)
	}

	posts := make([]model.NormalizedPost, len(raw))
	for i := range raw {
		posts[i] = s.normalizer.FromPayload(&raw[i])
	}
	return posts, nil
}

// GetPostBySlug はスラッグで記事を1件取得して正規化する。
// 見つからない場合はnilを返す。
func (s *PayloadSource) GetPostBySlug(ctx context.Context, slug string) (*model.NormalizedPost, error) {
	raw, err := s.client.FetchPostBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("payload source: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	post := s.normalizer.FromPayload(raw)
	return &post, nil
}

// GraphQLSource はWordPress GraphQL APIを取得元とする正規化済み記事のソース。
type GraphQLSource struct {
	client     *GraphQLClient
	normalizer *Normalizer
}

// NewGraphQLSource はGraphQLSourceの新しいインスタンスを生成する。
func NewGraphQLSource(client *GraphQLClient, normalizer *Normalizer) *GraphQLSource {
	return &GraphQLSource{client: client, normalizer: normalizer}
}

// ListPosts は記事を新しい順に最大limit件、正規化して返す。
func (s *GraphQLSource) ListPosts(ctx context.Context, limit int) ([]model.NormalizedPost, error) {
	raw, err := s.client.FetchPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("graphql source: %w", err)
	}

	posts := make([]model.NormalizedPost, len(raw))
	for i := range raw {
		posts[i] = s.normalizer.FromGraphQL(&raw[i])
	}
	return posts, nil
}

// GetPostBySlug はスラッグで記事を1件取得して正規化する。
// 見つからない場合はnilを返す。
func (s *GraphQLSource) GetPostBySlug(ctx context.Context, slug string) (*model.NormalizedPost, error) {
	raw, err := s.client.FetchPostBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("graphql source: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	post := s.normalizer.FromGraphQL(raw)
	return &post, nil
}
