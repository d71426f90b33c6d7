package model

import "time"

// SessionState は会話セッション単位の一時データを表す。
// 永続化されず、有効期限を過ぎると削除される。
type SessionState struct {
	SessionID              string
	SelectedOrganisationID *int64
	ExpiresAt              time.Time
	UpdatedAt              time.Time
}

// UserProfile は検証済みユーザーごとの永続データを表す。
// 匿名ユーザーについては作成も更新もしない。
type UserProfile struct {
	UserID                 string
	SelectedOrganisationID *int64
	Introduced             bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
