// Package fulfillment は音声アシスタントの1ターンを処理する中核ロジックを提供する。
// 組織の解決、直近タイムエントリの検索、インテントごとの状態遷移を含み、
// 結果はconversation.Responseの値として返す。
package fulfillment

import (
	"context"

	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/model"
)

// TimeTracker はトークン束縛済みのタイムトラッキングサービス操作。
type TimeTracker interface {
	ListOrganisations(ctx context.Context) ([]model.Organisation, error)
	LastTimeEntry(ctx context.Context, organisationID int64, purpose model.Purpose, filter model.EntryFilter) (*model.TimeEntry, error)
	ResumeTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error)
	StopTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error)
}

var _ TimeTracker = (*keeping.Session)(nil)

// TrackerFactory はアクセストークンからTimeTrackerを生成する。
type TrackerFactory func(accessToken string) TimeTracker

// NameSanitizer は外部から取得した表示名を読み上げ可能な文字列に整える。
type NameSanitizer interface {
	Sanitize(name string) string
}

// User はターンの呼び出しユーザー。
type User struct {
	// ID はプラットフォームが発行するユーザー識別子。
	ID string
	// Verified はプラットフォームがユーザーを検証済みかどうか。
	// 検証済みの場合のみUserProfileを読み書きする。
	Verified bool
	// AccessToken はタイムトラッキングサービスのベアラートークン。
	AccessToken string
}

// durable はUserProfileを読み書きしてよいかを返す。
func (u User) durable() bool {
	return u.Verified && u.ID != ""
}

// Turn は1ターン分の入力。
type Turn struct {
	SessionID string
	User      User
	Intent    Intent
	// OptionKey は選択リストで選ばれた項目のキー。SelectOrganisationでのみ使用する。
	OptionKey string
}
