// Package cms はヘッドレスCMSからの記事取得と正規化を提供する。
//
// 取得元はPayload CMSのREST APIとWordPressのGraphQL APIの2種類で、
// どちらもingestion境界で単一のmodel.NormalizedPostに変換される。
// レンダリング側のコードがCMSの応答形式で分岐することはない。
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// userAgent はCMSへのアウトバウンドリクエストに付与するUser-Agent。
const userAgent = "Corvex-SiteAPI/1.0"

// defaultMaxBodySize はmaxBodySize未指定時の応答ボディ上限（10MB）。
const defaultMaxBodySize = 10 * 1024 * 1024

// PayloadClient はPayload CMS REST APIのクライアント。
// 公開済み記事のみを取得する。
type PayloadClient struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string // 末尾スラッシュなし
	maxBodySize int64
}

// NewPayloadClient はPayloadClientの新しいインスタンスを生成する。
// baseURLの末尾スラッシュはアセットURL解決時の二重スラッシュを防ぐため除去される。
// maxBodySizeは応答ボディの読み取り上限バイト数。0以下は既定値になる。
func NewPayloadClient(httpClient *http.Client, logger *slog.Logger, baseURL string, maxBodySize int64) *PayloadClient {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &PayloadClient{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxBodySize: maxBodySize,
	}
}

// flexibleID はPayloadのID（数値または文字列）を文字列として受けるための型。
type flexibleID string

// UnmarshalJSON は数値・文字列どちらのIDも受け入れる。
func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", string(data))
	}
	*f = flexibleID(n.String())
	return nil
}

// PayloadPost はPayload CMSの記事応答の形状。
type PayloadPost struct {
	ID          flexibleID      `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	PublishedAt *time.Time      `json:"publishedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	HeroImage   *PayloadMedia   `json:"heroImage"`
	Content     json.RawMessage `json:"content"`
	Categories  []PayloadTerm   `json:"categories"`
	Authors     []PayloadAuthor `json:"authors"`
	// populatedAuthorsはdepth指定で解決された著者。存在すればこちらを優先する。
	PopulatedAuthors []PayloadAuthor     `json:"populatedAuthors"`
	Meta             *PayloadMeta        `json:"meta"`
	RelatedPosts     []PayloadRelatedRef `json:"relatedPosts"`
}

// PayloadMedia はPayloadのメディア（画像）参照。
// URLは相対パスの場合があり、正規化時に絶対URLへ解決される。
type PayloadMedia struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PayloadTerm はカテゴリ・タグの参照。
type PayloadTerm struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// PayloadAuthor は著者の参照。
type PayloadAuthor struct {
	ID                flexibleID    `json:"id"`
	Name              string        `json:"name"`
	Nickname          string        `json:"nickname"`
	ProfilePictureURL string        `json:"profilePicture"`
	Avatar            *PayloadMedia `json:"avatar"`
}

// PayloadMeta はSEO上書き項目。
type PayloadMeta struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Image       *PayloadMedia `json:"image"`
}

// PayloadRelatedRef は関連記事の浅い参照。
// 取得元が埋め込んだ範囲のみを保持し、再帰フェッチは行わない。
type PayloadRelatedRef struct {
	ID    flexibleID `json:"id"`
	Title string     `json:"title"`
	Slug  string     `json:"slug"`
}

// payloadListResponse はPayloadのコレクション応答のエンベロープ。
type payloadListResponse struct {
	Docs      []PayloadPost `json:"docs"`
	TotalDocs int           `json:"totalDocs"`
}

// FetchPosts は公開済み記事を新しい順に最大limit件取得する。
func (c *PayloadClient) FetchPosts(ctx context.Context, limit int) ([]PayloadPost, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("depth", "2")
	params.Set("where[_status][equals]", "published")
	params.Set("sort", "-publishedAt")

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return resp.Docs, nil
}

// FetchPostBySlug はスラッグで公開済み記事を1件取得する。
// 見つからない場合はnilを返す。
func (c *PayloadClient) FetchPostBySlug(ctx context.Context, slug string) (*PayloadPost, error) {
	params := url.Values{}
	params.Set("where[slug][equals]", slug)
	params.Set("where[_status][equals]", "published")
	params.Set("depth", "2")
	params.Set("limit", "1")

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}
	return &resp.Docs[0], nil
}

// get は記事コレクションエンドポイントへのGETリクエストを実行する。
func (c *PayloadClient) get(ctx context.Context, params url.Values) (*payloadListResponse, error) {
	reqURL := c.baseURL + "/api/posts?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create CMS request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("payload CMS request failed",
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to fetch from CMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("payload CMS returned error status",
			slog.String("url", reqURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("CMS returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read CMS response body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		c.logger.Error("payload CMS response exceeds size limit",
			slog.String("url", reqURL),
			slog.Int64("max_body_size", c.maxBodySize),
		)
		return nil, fmt.Errorf("CMS response exceeds %d bytes", c.maxBodySize)
	}

	var parsed payloadListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Error("failed to parse payload CMS response",
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to parse CMS response: %w", err)
	}

	return &parsed, nil
}
