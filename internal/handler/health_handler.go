package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/keepingvoice/internal/middleware"
)

// HealthChecker はデータベースなど依存先の疎通確認のインターフェース。
// *sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// NewHealthHandler はヘルスチェックのハンドラーを返す。
// checkerがnilの場合（インメモリストア使用時）は常にokを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				resp = healthResponse{Status: "unavailable", Database: "unreachable"}
				status = http.StatusServiceUnavailable
			} else {
				resp.Database = "ok"
			}
		}

		middleware.WriteJSON(w, status, resp)
	}
}
