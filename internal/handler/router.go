// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/keepingvoice/internal/metrics"
	"github.com/hitoshi/keepingvoice/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	RateLimiter       *middleware.RateLimiter
	BasicAuthUser     string
	BasicAuthPassword string

	// フルフィルメント
	Dispatcher TurnDispatcher

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → BasicAuth（/fulfillmentのみ、設定時）
//
// 会話セッションごとのレート制限はリクエストボディの解析後にハンドラー内で行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	fulfillmentHandler := NewFulfillmentHandler(deps.Dispatcher, deps.RateLimiter, deps.Metrics, deps.Logger)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- Webhook ---
	r.Group(func(r chi.Router) {
		if deps.BasicAuthUser != "" {
			r.Use(middleware.NewBasicAuthMiddleware(deps.BasicAuthUser, deps.BasicAuthPassword))
		}
		r.Post("/fulfillment", fulfillmentHandler.Handle)
	})

	return r
}
