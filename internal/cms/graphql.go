package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// getPostsQuery は記事一覧取得のGraphQLクエリ。公開日の降順で取得する。
const getPostsQuery = `
query GetPosts($first: Int = 20) {
  posts(first: $first, where: { orderby: { field: DATE, order: DESC } }) {
    nodes {
      id
      databaseId
      title
      slug
      date
      excerpt
      content
      author {
        node {
          name
          nickname
          slug
          profilePicture
          avatar {
            url
          }
        }
      }
      featuredImage {
        node {
          sourceUrl
          altText
          mediaDetails {
            width
            height
          }
        }
      }
      categories {
        nodes {
          name
          slug
        }
      }
      tags {
        nodes {
          name
          slug
        }
      }
      seo {
        title
        metaDesc
        opengraphImage {
          sourceUrl
        }
      }
    }
  }
}`

// getPostBySlugQuery はスラッグ指定で記事を1件取得するGraphQLクエリ。
const getPostBySlugQuery = `
query GetPostBySlug($slug: ID!) {
  post(id: $slug, idType: SLUG) {
    id
    databaseId
    title
    slug
    date
    excerpt
    content
    author {
      node {
        name
        nickname
        slug
        profilePicture
        avatar {
          url
        }
      }
    }
    featuredImage {
      node {
        sourceUrl
        altText
        mediaDetails {
          width
          height
        }
      }
    }
    categories {
      nodes {
        name
        slug
      }
    }
    tags {
      nodes {
        name
        slug
      }
    }
    seo {
      title
      metaDesc
      opengraphImage {
        sourceUrl
      }
    }
  }
}`

// GraphQLClient はWordPress GraphQL APIのクライアント。
type GraphQLClient struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    string
	maxBodySize int64
}

// NewGraphQLClient はGraphQLClientの新しいインスタンスを生成する。
// maxBodySizeは応答ボディの読み取り上限バイト数。0以下は既定値になる。
func NewGraphQLClient(httpClient *http.Client, logger *slog.Logger, endpoint string, maxBodySize int64) *GraphQLClient {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &GraphQLClient{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    endpoint,
		maxBodySize: maxBodySize,
	}
}

// GraphQLPost はWordPress GraphQL APIの記事応答の形状。
type GraphQLPost struct {
	ID            string         `json:"id"`
	DatabaseID    int            `json:"databaseId"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Date          string         `json:"date"`
	Excerpt       string         `json:"excerpt"` // HTML断片
	Content       string         `json:"content"` // HTML本文
	Author        *gqlAuthorNode `json:"author"`
	FeaturedImage *gqlImageNode  `json:"featuredImage"`
	Categories    *gqlTermNodes  `json:"categories"`
	Tags          *gqlTermNodes  `json:"tags"`
	SEO           *gqlSEO        `json:"seo"`
}

type gqlAuthorNode struct {
	Node *GraphQLAuthor `json:"node"`
}

// GraphQLAuthor はGraphQL応答の著者情報。
type GraphQLAuthor struct {
	Name              string     `json:"name"`
	Nickname          string     `json:"nickname"`
	Slug              string     `json:"slug"`
	ProfilePictureURL string     `json:"profilePicture"`
	Avatar            *gqlAvatar `json:"avatar"`
}

type gqlAvatar struct {
	URL string `json:"url"`
}

type gqlImageNode struct {
	Node *GraphQLImage `json:"node"`
}

// GraphQLImage はGraphQL応答の画像情報。
type GraphQLImage struct {
	SourceURL    string           `json:"sourceUrl"`
	AltText      string           `json:"altText"`
	MediaDetails *gqlMediaDetails `json:"mediaDetails"`
}

type gqlMediaDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type gqlTermNodes struct {
	Nodes []gqlTerm `json:"nodes"`
}

type gqlTerm struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type gqlSEO struct {
	Title          string       `json:"title"`
	MetaDesc       string       `json:"metaDesc"`
	OpengraphImage *gqlImageRef `json:"opengraphImage"`
}

type gqlImageRef struct {
	SourceURL string `json:"sourceUrl"`
}

// graphqlRequest はGraphQLリクエストボディ。
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlError はGraphQL応答のエラー項目。
type graphqlError struct {
	Message string `json:"message"`
}

// FetchPosts は記事を新しい順に最大limit件取得する。
func (c *GraphQLClient) FetchPosts(ctx context.Context, limit int) ([]GraphQLPost, error) {
	var result struct {
		Posts struct {
			Nodes []GraphQLPost `json:"nodes"`
		} `json:"posts"`
	}

	err := c.execute(ctx, getPostsQuery, map[string]any{"first": limit}, &result)
	if err != nil {
		return nil, err
	}
	return result.Posts.Nodes, nil
}

// FetchPostBySlug はスラッグで記事を1件取得する。
// 見つからない場合はnilを返す。
func (c *GraphQLClient) FetchPostBySlug(ctx context.Context, slug string) (*GraphQLPost, error) {
	var result struct {
		Post *GraphQLPost `json:"post"`
	}

	err := c.execute(ctx, getPostBySlugQuery, map[string]any{"slug": slug}, &result)
	if err != nil {
		return nil, err
	}
	return result.Post, nil
}

// execute はGraphQLクエリを実行し、dataフィールドをoutにデコードする。
// GraphQLレベルのエラーはHTTP 200でもエラーとして返す。
func (c *GraphQLClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	reqBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("graphql CMS request failed",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to fetch from CMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("graphql CMS returned error status",
			slog.String("endpoint", c.endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("CMS returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read CMS response body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		c.logger.Error("graphql CMS response exceeds size limit",
			slog.String("endpoint", c.endpoint),
			slog.Int64("max_body_size", c.maxBodySize),
		)
		return fmt.Errorf("CMS response exceeds %d bytes", c.maxBodySize)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Error("failed to parse graphql CMS response",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to parse CMS response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return fmt.Errorf("CMS query failed: %s", envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return fmt.Errorf("CMS response has no data")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode CMS data: %w", err)
	}

	return nil
}
