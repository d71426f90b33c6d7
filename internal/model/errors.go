package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Webhook呼び出し元に返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeMissingIntent  = "MISSING_INTENT"
	ErrCodeMissingSession = "MISSING_SESSION"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
)

// 会話フローで判定に使うエラー。
// いずれもターンの終了を意味し、自動リトライはしない。
var (
	// ErrNoOrganisations は利用可能な組織が1件もないことを示す。
	ErrNoOrganisations = errors.New("no organisations available")
	// ErrOrganisationsUnavailable は組織一覧の取得に失敗したことを示す。
	ErrOrganisationsUnavailable = errors.New("organisations unavailable")
	// ErrUnknownOption は選択されたオプションキーが組織一覧に存在しないことを示す。
	ErrUnknownOption = errors.New("unknown organisation option")
)

// NewInvalidPayloadError はWebhookリクエストの形式不正エラーを生成する。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  fmt.Sprintf("Webhookリクエストを解析できません: %s", reason),
		Category: "validation",
		Action:   "Dialogflow WebhookRequest形式のJSONを送信してください。",
	}
}

// NewMissingIntentError はインテント名が含まれない場合のエラーを生成する。
func NewMissingIntentError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingIntent,
		Message:  "queryResult.intent.displayName が指定されていません。",
		Category: "validation",
		Action:   "分類済みのインテント名を含めて送信してください。",
	}
}

// NewMissingSessionError はセッションIDが含まれない場合のエラーを生成する。
func NewMissingSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSession,
		Message:  "session が指定されていません。",
		Category: "validation",
		Action:   "会話セッションIDを含めて送信してください。",
	}
}

// NewUnauthorizedError はWebhook認証に失敗した場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Webhookの認証に失敗しました。",
		Category: "auth",
		Action:   "フルフィルメント設定の認証情報を確認してください。",
	}
}
