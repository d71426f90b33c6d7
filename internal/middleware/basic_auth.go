package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/hitoshi/keepingvoice/internal/model"
)

// NewBasicAuthMiddleware はフルフィルメント設定のBasic認証を検証するミドルウェアを返す。
// 認証情報が一致しないリクエストには401 Unauthorizedを統一エラーフォーマットで返す。
func NewBasicAuthMiddleware(username, password string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !credentialsMatch(user, pass, username, password) {
				slog.Warn("webhook authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="fulfillment"`)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credentialsMatch はユーザー名とパスワードを定数時間で比較する。
func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userOK && passOK
}
