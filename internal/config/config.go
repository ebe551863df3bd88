// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CMSSource は記事取得元のCMS種別を表す。
type CMSSource string

const (
	// CMSSourcePayload はPayload CMSのREST APIを取得元とする。
	CMSSourcePayload CMSSource = "payload"
	// CMSSourceGraphQL はWordPressのGraphQL APIを取得元とする。
	CMSSourceGraphQL CMSSource = "graphql"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// CMS
	CMSSource       CMSSource
	CMSAPIURL       string // Payload REST APIのベースURL（アセットURL解決にも使用）
	GraphQLEndpoint string

	// Fetch
	FetchTimeout time.Duration
	FetchMaxSize int64

	// Content
	ExcerptMaxLength int

	// Waitlist Rate Limit
	WaitlistRateLimit  int           // ウィンドウあたりの許容リクエスト数
	WaitlistRateWindow time.Duration // 固定ウィンドウ長

	// General Rate Limit
	RateLimitGeneral int // API全般のレート（req/min/クライアント）

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.CMSAPIURL = os.Getenv("CMS_API_URL")
	if cfg.CMSAPIURL == "" {
		missing = append(missing, "CMS_API_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// アセットURL解決時の二重スラッシュを防ぐため末尾スラッシュは落とす
	cfg.CMSAPIURL = strings.TrimRight(cfg.CMSAPIURL, "/")

	// Optional fields with defaults
	source := CMSSource(getEnvString("CMS_SOURCE", string(CMSSourcePayload)))
	if source != CMSSourcePayload && source != CMSSourceGraphQL {
		return nil, fmt.Errorf("invalid CMS_SOURCE: %q (must be payload or graphql)", source)
	}
	cfg.CMSSource = source

	cfg.GraphQLEndpoint = getEnvString("GRAPHQL_ENDPOINT", "")
	if cfg.CMSSource == CMSSourceGraphQL && cfg.GraphQLEndpoint == "" {
		return nil, fmt.Errorf("GRAPHQL_ENDPOINT is required when CMS_SOURCE is graphql")
	}

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.ExcerptMaxLength = getEnvInt("EXCERPT_MAX_LENGTH", 200)
	cfg.WaitlistRateLimit = getEnvInt("WAITLIST_RATE_LIMIT", 5)
	cfg.WaitlistRateWindow = getEnvDuration("WAITLIST_RATE_WINDOW", 60*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
