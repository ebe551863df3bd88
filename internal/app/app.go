// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvex/siteapi/internal/cms"
	"github.com/corvex/siteapi/internal/config"
	"github.com/corvex/siteapi/internal/database"
	"github.com/corvex/siteapi/internal/handler"
	"github.com/corvex/siteapi/internal/logger"
	"github.com/corvex/siteapi/internal/metrics"
	"github.com/corvex/siteapi/internal/middleware"
	"github.com/corvex/siteapi/internal/post"
	"github.com/corvex/siteapi/internal/repository"
	"github.com/corvex/siteapi/internal/security"
	"github.com/corvex/siteapi/internal/waitlist"

	"github.com/prometheus/client_golang/prometheus"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("cms_source", string(cfg.CMSSource)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	waitlistRepo := repository.NewPostgresWaitlistRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewMarkupSanitizer()

	// CMSエンドポイントの安全性を起動時に確認する。
	// ローカル開発ではCMSがlocalhostで動くため、警告に留めて起動は続行する。
	if err := ssrfGuard.ValidateURL(cmsEndpoint(cfg)); err != nil {
		slog.Warn("CMS endpoint failed SSRF validation",
			slog.String("error", err.Error()),
		)
	}

	// 4. CMS取得元の初期化
	httpClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout)
	normalizer := cms.NewNormalizer(cfg.CMSAPIURL, cfg.ExcerptMaxLength, sanitizer)

	var source post.Source
	switch cfg.CMSSource {
	case config.CMSSourceGraphQL:
		client := cms.NewGraphQLClient(httpClient, slog.Default(), cfg.GraphQLEndpoint, cfg.FetchMaxSize)
		source = cms.NewGraphQLSource(client, normalizer)
	default:
		client := cms.NewPayloadClient(httpClient, slog.Default(), cfg.CMSAPIURL, cfg.FetchMaxSize)
		source = cms.NewPayloadSource(client, normalizer)
	}

	// 5. ドメインサービスの初期化
	waitlistLimiter := waitlist.NewRateLimiter(waitlist.RateLimiterConfig{
		Limit:           cfg.WaitlistRateLimit,
		Window:          cfg.WaitlistRateWindow,
		CleanupInterval: 5 * time.Minute,
	})
	defer waitlistLimiter.Stop()

	waitlistService := waitlist.NewService(waitlistRepo, waitlistLimiter)
	postService := post.NewService(source)

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	generalLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer generalLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       generalLimiter,
		Logger:            slog.Default(),

		WaitlistService: waitlistService,
		PostService:     postService,
		HealthDB:        db,

		Metrics:  collector,
		Gatherer: registry,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// cmsEndpoint は設定された取得元のエンドポイントURLを返す。
func cmsEndpoint(cfg *config.Config) string {
	if cfg.CMSSource == config.CMSSourceGraphQL {
		return cfg.GraphQLEndpoint
	}
	return cfg.CMSAPIURL
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
