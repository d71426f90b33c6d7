package fulfillment

import (
	"context"
	"log/slog"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/model"
)

// Action はエントリの状態から決まる次のコマンド。
type Action int

const (
	// ActionNone は何もしない（冪等な応答を返す）。
	ActionNone Action = iota
	// ActionResume はエントリを再開する。
	ActionResume
	// ActionStop はエントリを停止する。
	ActionStop
)

// DecideStart は開始系インテントの遷移を決める。entryはnilであってはならない。
func DecideStart(entry *model.TimeEntry) Action {
	if entry.Ongoing {
		return ActionNone
	}
	return ActionResume
}

// DecideStop は停止インテントの遷移を決める。entryがnilの場合は進行中のエントリなしとみなす。
func DecideStop(entry *model.TimeEntry) Action {
	if entry != nil && entry.Ongoing {
		return ActionStop
	}
	return ActionNone
}

// Outcome はターンの結果。メトリクスのラベルに使用する。
type Outcome string

const (
	OutcomeResumed           Outcome = "resumed"
	OutcomeAlreadyOngoing    Outcome = "already_ongoing"
	OutcomeStopped           Outcome = "stopped"
	OutcomeNothingOngoing    Outcome = "nothing_ongoing"
	OutcomeFeatureDisabled   Outcome = "feature_disabled"
	OutcomeSelectionRequired Outcome = "selection_required"
	OutcomeSelected          Outcome = "selected"
	OutcomeNoOrganisations   Outcome = "no_organisations"
	OutcomeGreeted           Outcome = "greeted"
	OutcomeFallback          Outcome = "fallback"
	OutcomeFailed            Outcome = "failed"
	OutcomeUnhandled         Outcome = "unhandled"
)

// Engine はタイマー系インテントの状態遷移を実行する。
// 再開・停止はいずれも1回だけ送信し、失敗してもリトライや補償は行わない。
type Engine struct {
	locator *Locator
	logger  *slog.Logger
}

// NewEngine はEngineを生成する。
func NewEngine(locator *Locator, logger *slog.Logger) *Engine {
	return &Engine{locator: locator, logger: logger}
}

// StartTimer は作業または休憩のタイマーを開始する。
// 再開可能な直近エントリ（locked=0）を検索し、停止中なら再開する。
// エントリが見つからない場合（404）も取得失敗として応答する。
// 休憩が無効な組織では検索を行わずに終了する。
func (e *Engine) StartTimer(ctx context.Context, tracker TimeTracker, org *model.Organisation, purpose model.Purpose) (conversation.Response, Outcome) {
	msgs := workStartMessages
	if purpose == model.PurposeBreak {
		if !org.BreaksEnabled() {
			return conversation.Close(breaksDisabledMessage(org.Name)), OutcomeFeatureDisabled
		}
		msgs = breakStartMessages
	}

	entry, err := e.locator.FindLast(ctx, tracker, org.ID, purpose, model.FilterUnlocked)
	if err != nil {
		return conversation.Close(msgs.fetchFailed), OutcomeFailed
	}
	if entry == nil {
		e.logger.Warn("再開できるタイムエントリがありません",
			slog.String("operation", keeping.OpLastTimeEntry),
			slog.Int64("organisation_id", org.ID),
			slog.String("purpose", string(purpose)),
		)
		return conversation.Close(msgs.fetchFailed), OutcomeFailed
	}

	if DecideStart(entry) == ActionNone {
		return conversation.Close(msgs.alreadyOngoing), OutcomeAlreadyOngoing
	}

	if _, err := tracker.ResumeTimeEntry(ctx, org.ID, entry.ID); err != nil {
		e.logger.Error("タイムエントリの再開に失敗しました",
			slog.String("operation", keeping.OpResumeTimeEntry),
			slog.Int64("organisation_id", org.ID),
			slog.Int64("time_entry_id", entry.ID),
			slog.Int("status_code", keeping.StatusCode(err)),
			slog.String("error", err.Error()),
		)
		return conversation.Close(msgs.resumeFailed), OutcomeFailed
	}
	return conversation.Close(msgs.resumed), OutcomeResumed
}

// StopWorkTimer は進行中の作業エントリ（ongoing=1）を停止する。
// エントリが見つからない場合（404）は何もしない。
func (e *Engine) StopWorkTimer(ctx context.Context, tracker TimeTracker, org *model.Organisation) (conversation.Response, Outcome) {
	entry, err := e.locator.FindLast(ctx, tracker, org.ID, model.PurposeWork, model.FilterOngoing)
	if err != nil {
		return conversation.Close(msgStopFetchFailed), OutcomeFailed
	}

	if DecideStop(entry) == ActionNone {
		return conversation.Close(msgNothingOngoing), OutcomeNothingOngoing
	}

	if _, err := tracker.StopTimeEntry(ctx, org.ID, entry.ID); err != nil {
		e.logger.Error("タイムエントリの停止に失敗しました",
			slog.String("operation", keeping.OpStopTimeEntry),
			slog.Int64("organisation_id", org.ID),
			slog.Int64("time_entry_id", entry.ID),
			slog.Int("status_code", keeping.StatusCode(err)),
			slog.String("error", err.Error()),
		)
		return conversation.Close(msgStopFailed), OutcomeFailed
	}
	return conversation.Close(msgStopped), OutcomeStopped
}
