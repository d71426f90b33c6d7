package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/keepingvoice/internal/model"
)

func TestWriteJSON_SetsStatusAndContentType(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteJSON_UnencodableValueKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, math.Inf(1))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestWriteErrorResponse_WebhookErrors はWebhookのエラー種別ごとに統一フォーマットで書き込まれることを検証する。
func TestWriteErrorResponse_WebhookErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        *model.APIError
		code       string
		category   string
	}{
		{"InvalidPayload", http.StatusBadRequest, model.NewInvalidPayloadError("unexpected EOF"), model.ErrCodeInvalidPayload, "validation"},
		{"MissingIntent", http.StatusBadRequest, model.NewMissingIntentError(), model.ErrCodeMissingIntent, "validation"},
		{"MissingSession", http.StatusBadRequest, model.NewMissingSessionError(), model.ErrCodeMissingSession, "validation"},
		{"Unauthorized", http.StatusUnauthorized, model.NewUnauthorizedError(), model.ErrCodeUnauthorized, "auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteErrorResponse(w, tt.statusCode, tt.err)

			if w.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.statusCode)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if body.Category != tt.category {
				t.Errorf("category = %q, want %q", body.Category, tt.category)
			}
			if body.Message == "" || body.Action == "" {
				t.Errorf("message and action should be set: %+v", body)
			}
		})
	}
}

// TestInternalServerError_ReturnsSystemError は内部エラーが統一フォーマットで返ることを検証する。
func TestInternalServerError_ReturnsSystemError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
}
