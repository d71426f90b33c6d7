package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/keepingvoice/internal/config"
	"github.com/hitoshi/keepingvoice/internal/database"
	"github.com/hitoshi/keepingvoice/internal/fulfillment"
	"github.com/hitoshi/keepingvoice/internal/handler"
	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/logger"
	"github.com/hitoshi/keepingvoice/internal/metrics"
	"github.com/hitoshi/keepingvoice/internal/middleware"
	"github.com/hitoshi/keepingvoice/internal/repository"
	"github.com/hitoshi/keepingvoice/internal/security"
	"github.com/hitoshi/keepingvoice/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// errDatabaseRequired はDATABASE_URLが必要なコマンドで未設定の場合のエラー。
var errDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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

	if cmd.RequiresDatabase() && cfg.DatabaseURL == "" {
		return fmt.Errorf("%s: %w", cmd, errDatabaseRequired)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("database", cfg.DatabaseURL != ""),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストアの初期化（DATABASE_URL未設定時はインメモリ）
	stores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. Keeping APIクライアントの初期化
	httpClient, err := newKeepingHTTPClient(cfg)
	if err != nil {
		return err
	}
	client, err := keeping.NewClient(httpClient, cfg.KeepingAPIBaseURL, slog.Default(), collector)
	if err != nil {
		return fmt.Errorf("failed to create keeping client: %w", err)
	}

	// 4. ディスパッチャーの初期化
	dispatcher := fulfillment.NewDispatcher(fulfillment.DispatcherDeps{
		Trackers: func(accessToken string) fulfillment.TimeTracker {
			return client.WithToken(accessToken)
		},
		Sessions:   stores.Sessions,
		Profiles:   stores.Profiles,
		Sanitizer:  security.NewNameSanitizer(),
		Metrics:    collector,
		Logger:     slog.Default(),
		SessionTTL: cfg.SessionStateTTL,
	})

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitWebhook))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		RateLimiter:       rateLimiter,
		BasicAuthUser:     cfg.WebhookBasicAuthUser,
		BasicAuthPassword: cfg.WebhookBasicAuthPassword,

		Dispatcher: dispatcher,

		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
	}
	if stores.DB != nil {
		deps.HealthChecker = stores.DB
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
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
			slog.Bool("basic_auth", cfg.BasicAuthEnabled()),
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

// Stores はserveモードが使用する会話状態ストア。
// DBはPostgreSQL使用時のみ非nil。
type Stores struct {
	DB       *sql.DB
	Sessions repository.SessionStateRepository
	Profiles repository.UserProfileRepository
}

// Close はDB接続を閉じる。
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// openStores は設定に応じてPostgreSQLまたはインメモリのストアを返す。
func openStores(cfg *config.Config) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set, conversation state is kept in memory")
		return &Stores{
			Sessions: repository.NewMemorySessionStateRepo(),
			Profiles: repository.NewMemoryUserProfileRepo(),
		}, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return &Stores{
		DB:       db,
		Sessions: repository.NewPostgresSessionStateRepo(db),
		Profiles: repository.NewPostgresUserProfileRepo(db),
	}, nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseRequired
	}

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DatabaseMaxOpenConns
	pool.MaxIdleConns = min(pool.MaxIdleConns, cfg.DatabaseMaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		return nil, err
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("max_open_conns", pool.MaxOpenConns),
	)
	return db, nil
}

// newKeepingHTTPClient はKeeping API用のHTTPクライアントを生成する。
// 通常はSSRF対策済みクライアントを使い、ベースURLを起動時に検証する。
// KEEPING_API_ALLOW_PRIVATE指定時（ローカルのスタブAPI向け）は通常のクライアントを使う。
func newKeepingHTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.KeepingAPIAllowPrivate {
		slog.Warn("SSRF protection for keeping API is disabled",
			slog.String("base_url", cfg.KeepingAPIBaseURL),
		)
		return &http.Client{Timeout: cfg.KeepingAPITimeout}, nil
	}

	client, err := security.NewAPIEndpointGuard().Client(cfg.KeepingAPIBaseURL, cfg.KeepingAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid KEEPING_API_BASE_URL: %w", err)
	}
	return client, nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れ会話状態のクリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
