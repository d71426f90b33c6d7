package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/dialogflow"
	"github.com/hitoshi/keepingvoice/internal/fulfillment"
	"github.com/hitoshi/keepingvoice/internal/metrics"
	"github.com/hitoshi/keepingvoice/internal/middleware"
	"github.com/hitoshi/keepingvoice/internal/model"
)

// TurnDispatcher はフルフィルメントハンドラーが必要とするディスパッチャーのインターフェース。
type TurnDispatcher interface {
	// Dispatch は1ターンを処理して応答を返す。
	Dispatch(ctx context.Context, turn fulfillment.Turn) conversation.Response
}

// FulfillmentHandler はDialogflowのWebhookを処理するHTTPハンドラー。
type FulfillmentHandler struct {
	dispatcher TurnDispatcher
	limiter    *middleware.RateLimiter
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewFulfillmentHandler はFulfillmentHandlerを生成する。limiterがnilの場合はレート制限を行わない。
func NewFulfillmentHandler(dispatcher TurnDispatcher, limiter *middleware.RateLimiter, collector metrics.MetricsCollector, logger *slog.Logger) *FulfillmentHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &FulfillmentHandler{
		dispatcher: dispatcher,
		limiter:    limiter,
		metrics:    collector,
		logger:     logger,
	}
}

// Handle はWebhookリクエストを処理する。
// POST /fulfillment
func (h *FulfillmentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	req, err := dialogflow.Decode(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	turn, known, err := req.Turn()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !known {
		h.logger.Warn("未知のインテントをフォールバックとして処理します",
			slog.String("intent", req.QueryResult.Intent.DisplayName),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
	}

	if h.limiter != nil && !h.limiter.Allow(turn.SessionID) {
		h.logger.Warn("rate limit exceeded",
			slog.String("session_id", turn.SessionID),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		h.metrics.RecordWebhookStatus(http.StatusTooManyRequests)
		middleware.WriteRateLimitResponse(w, h.limiter.Limit())
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), turn)

	h.metrics.RecordWebhookStatus(http.StatusOK)
	middleware.WriteJSON(w, http.StatusOK, dialogflow.Encode(req.Session, resp))
}

// writeError はリクエストの検証エラーを400で返す。
func (h *FulfillmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewInvalidPayloadError(err.Error())
	}
	h.logger.Warn("不正なWebhookリクエストです",
		slog.String("code", apiErr.Code),
		slog.String("error", apiErr.Message),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	h.metrics.RecordWebhookStatus(http.StatusBadRequest)
	middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
}
