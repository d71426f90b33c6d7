package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/fulfillment"
)

// mockDispatcher はTurnDispatcherのモック。
type mockDispatcher struct {
	mu       sync.Mutex
	turns    []fulfillment.Turn
	dispatch func(ctx context.Context, turn fulfillment.Turn) conversation.Response
}

func (m *mockDispatcher) Dispatch(ctx context.Context, turn fulfillment.Turn) conversation.Response {
	m.mu.Lock()
	m.turns = append(m.turns, turn)
	m.mu.Unlock()
	if m.dispatch != nil {
		return m.dispatch(ctx, turn)
	}
	return conversation.Close("Tot ziens.")
}

func (m *mockDispatcher) calls() []fulfillment.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fulfillment.Turn(nil), m.turns...)
}

// statusRecorder はRecordWebhookStatusの呼び出しを記録するメトリクスモック。
type statusRecorder struct {
	mu       sync.Mutex
	statuses []int
}

func (r *statusRecorder) RecordIntent(string, string) {}
func (r *statusRecorder) RecordUpstreamCall(string, int) {}
func (r *statusRecorder) RecordUpstreamLatency(string, time.Duration) {}
func (r *statusRecorder) RecordWebhookStatus(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, code)
}

func (r *statusRecorder) recorded() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.statuses...)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

const testSession = "projects/keeping/agent/sessions/abc-123"

// webhookBody はインテント名とOPTION引数からWebhookRequestのJSONを組み立てる。
func webhookBody(intent, option string) string {
	var args string
	if option != "" {
		args = `{"intent":"actions.intent.OPTION","arguments":[{"name":"OPTION","textValue":"` + option + `"}]}`
	}
	return `{
		"responseId": "r-1",
		"session": "` + testSession + `",
		"queryResult": {"queryText": "start", "intent": {"displayName": "` + intent + `"}},
		"originalDetectIntentRequest": {
			"source": "google",
			"payload": {
				"user": {"userId": "u-1", "accessToken": "token-abc", "userVerificationStatus": "VERIFIED"},
				"inputs": [` + args + `]
			}
		}
	}`
}

func postFulfillment(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fulfillment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
