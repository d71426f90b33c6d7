package model

import "net/url"

// Purpose はタイムエントリの種別を表す。
type Purpose string

const (
	// PurposeWork は作業時間のエントリ。
	PurposeWork Purpose = "work"
	// PurposeBreak は休憩のエントリ。
	PurposeBreak Purpose = "break"
)

// TimeEntry はタイムトラッキングサービス上の直近のタイムエントリを表す。
// エントリの状態はサービス側が所有し、このアプリケーションは読み取るだけである。
type TimeEntry struct {
	ID      int64   `json:"id"`
	Purpose Purpose `json:"purpose"`
	Ongoing bool    `json:"ongoing"`
	Locked  bool    `json:"locked"`
}

// EntryFilter は直近エントリ検索の絞り込み条件。
type EntryFilter string

const (
	// FilterUnlocked はロックされていない（再開可能な）エントリに絞り込む。
	FilterUnlocked EntryFilter = "unlocked"
	// FilterOngoing は進行中のエントリに絞り込む。
	FilterOngoing EntryFilter = "ongoing"
)

// Apply はフィルタを検索クエリパラメータに反映する。
func (f EntryFilter) Apply(q url.Values) {
	switch f {
	case FilterUnlocked:
		q.Set("locked", "0")
	case FilterOngoing:
		q.Set("ongoing", "1")
	}
}
