package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/keepingvoice/internal/keeping"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database（未設定の場合はインメモリストアを使用する）
	DatabaseURL          string
	DatabaseMaxOpenConns int

	// Keeping API
	KeepingAPIBaseURL      string
	KeepingAPITimeout      time.Duration
	KeepingAPIAllowPrivate bool

	// Conversation
	SessionStateTTL time.Duration

	// Rate Limit（会話セッションごと、req/min）
	RateLimitWebhook int

	// Webhook認証
	WebhookBasicAuthUser     string
	WebhookBasicAuthPassword string

	// Worker
	CleanupInterval time.Duration

	// Server
	ServerPort string

	// Logging
	LogLevel string
}

// BasicAuthEnabled はWebhookのBasic認証が設定されているかを返す。
func (c *Config) BasicAuthEnabled() bool {
	return c.WebhookBasicAuthUser != ""
}

// Load は環境変数からConfigを読み込む。
// 解釈できない値や不正な組み合わせはまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}
	env := &envReader{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DatabaseMaxOpenConns = env.int("DATABASE_MAX_OPEN_CONNS", 10)
	cfg.KeepingAPIBaseURL = getEnvString("KEEPING_API_BASE_URL", keeping.DefaultBaseURL)
	cfg.KeepingAPITimeout = env.duration("KEEPING_API_TIMEOUT", 10*time.Second)
	cfg.KeepingAPIAllowPrivate = env.bool("KEEPING_API_ALLOW_PRIVATE", false)
	cfg.SessionStateTTL = env.duration("SESSION_STATE_TTL", 30*time.Minute)
	cfg.RateLimitWebhook = env.int("RATE_LIMIT_WEBHOOK", 30)
	cfg.WebhookBasicAuthUser = os.Getenv("WEBHOOK_BASIC_AUTH_USER")
	cfg.WebhookBasicAuthPassword = os.Getenv("WEBHOOK_BASIC_AUTH_PASSWORD")
	cfg.CleanupInterval = env.duration("CLEANUP_INTERVAL", time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	problems := append(env.problems, cfg.validate()...)
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func (c *Config) validate() []string {
	var problems []string

	if u, err := url.Parse(c.KeepingAPIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "KEEPING_API_BASE_URL must be an absolute URL")
	}
	if c.DatabaseMaxOpenConns <= 0 {
		problems = append(problems, "DATABASE_MAX_OPEN_CONNS must be positive")
	}
	if c.KeepingAPITimeout <= 0 {
		problems = append(problems, "KEEPING_API_TIMEOUT must be positive")
	}
	if c.SessionStateTTL <= 0 {
		problems = append(problems, "SESSION_STATE_TTL must be positive")
	}
	if c.RateLimitWebhook <= 0 {
		problems = append(problems, "RATE_LIMIT_WEBHOOK must be positive")
	}
	if c.CleanupInterval <= 0 {
		problems = append(problems, "CLEANUP_INTERVAL must be positive")
	}
	if (c.WebhookBasicAuthUser == "") != (c.WebhookBasicAuthPassword == "") {
		problems = append(problems, "WEBHOOK_BASIC_AUTH_USER and WEBHOOK_BASIC_AUTH_PASSWORD must be set together")
	}

	return problems
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envReader は型付きの環境変数を読み、解釈できない値を記録する。
// 解釈できない値の場合は既定値を返す。
type envReader struct {
	problems []string
}

func (e *envReader) fail(key, v, kind string) {
	e.problems = append(e.problems, fmt.Sprintf("%s=%q is not a valid %s", key, v, kind))
}

func (e *envReader) int(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "integer")
		return defaultVal
	}
	return i
}

func (e *envReader) bool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, "boolean")
		return defaultVal
	}
	return b
}

func (e *envReader) duration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, "duration")
		return defaultVal
	}
	return d
}
