package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/metrics"
	"github.com/hitoshi/keepingvoice/internal/model"
	"github.com/hitoshi/keepingvoice/internal/repository"
)

// DispatcherDeps はDispatcherの依存関係。
type DispatcherDeps struct {
	Trackers   TrackerFactory
	Sessions   repository.SessionStateRepository
	Profiles   repository.UserProfileRepository
	Sanitizer  NameSanitizer
	Metrics    metrics.MetricsCollector
	Logger     *slog.Logger
	SessionTTL time.Duration
}

// Dispatcher はインテントを処理に振り分け、ターンの応答を返す。
type Dispatcher struct {
	trackers TrackerFactory
	store    *StateStore
	resolver *Resolver
	engine   *Engine
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	store := NewStateStore(deps.Sessions, deps.Profiles, deps.SessionTTL, deps.Logger)
	return &Dispatcher{
		trackers: deps.Trackers,
		store:    store,
		resolver: NewResolver(store, deps.Sanitizer, deps.Logger),
		engine:   NewEngine(NewLocator(deps.Logger), deps.Logger),
		metrics:  collector,
		logger:   deps.Logger,
	}
}

// Dispatch は1ターンを処理して応答を返す。
// タイムトラッキングサービスへの呼び出しはすべて順番に行う。
func (d *Dispatcher) Dispatch(ctx context.Context, turn Turn) conversation.Response {
	resp, outcome := d.route(ctx, turn)
	d.metrics.RecordIntent(turn.Intent.String(), string(outcome))
	d.logger.Info("インテントを処理しました",
		slog.String("intent", turn.Intent.String()),
		slog.String("outcome", string(outcome)),
		slog.Bool("expect_user_response", resp.ExpectsUserResponse()),
	)
	return resp
}

func (d *Dispatcher) route(ctx context.Context, turn Turn) (conversation.Response, Outcome) {
	switch turn.Intent {
	case IntentFallback:
		return fallback(), OutcomeFallback
	case IntentWelcome:
		return d.welcome(ctx, turn)
	case IntentSelectOrganisation:
		return d.selectOrganisation(ctx, turn)
	case IntentStartWorkTimer:
		return d.withOrganisation(ctx, turn, func(tracker TimeTracker, org *model.Organisation) (conversation.Response, Outcome) {
			return d.engine.StartTimer(ctx, tracker, org, model.PurposeWork)
		})
	case IntentStartBreakTimer:
		return d.withOrganisation(ctx, turn, func(tracker TimeTracker, org *model.Organisation) (conversation.Response, Outcome) {
			return d.engine.StartTimer(ctx, tracker, org, model.PurposeBreak)
		})
	case IntentStopWorkTimer:
		return d.withOrganisation(ctx, turn, func(tracker TimeTracker, org *model.Organisation) (conversation.Response, Outcome) {
			return d.engine.StopWorkTimer(ctx, tracker, org)
		})
	}

	d.logger.Error("インテントの処理が定義されていません", slog.Int("intent", int(turn.Intent)))
	return fallback(), OutcomeUnhandled
}

// withOrganisation は組織を解決してからnextを実行する。
// 選択が必要な場合や解決に失敗した場合はnextを呼ばずに応答する。
func (d *Dispatcher) withOrganisation(
	ctx context.Context,
	turn Turn,
	next func(tracker TimeTracker, org *model.Organisation) (conversation.Response, Outcome),
) (conversation.Response, Outcome) {
	tracker := d.trackers(turn.User.AccessToken)

	res, err := d.resolver.Resolve(ctx, tracker, turn)
	if err != nil {
		if errors.Is(err, model.ErrNoOrganisations) {
			return conversation.Close(msgNoOrganisations), OutcomeNoOrganisations
		}
		return conversation.Close(msgOrganisationsUnavailable), OutcomeFailed
	}
	if res.NeedsSelection() {
		return selectionPrompt(res.Choices), OutcomeSelectionRequired
	}
	return next(tracker, res.Organisation)
}

// welcome は挨拶してから組織を解決する。
// 検証済みで紹介済みのユーザーには短い挨拶を使い、それ以外には長い挨拶を使う。
func (d *Dispatcher) welcome(ctx context.Context, turn Turn) (conversation.Response, Outcome) {
	greeting := msgWelcomeLong
	if profile := d.store.loadProfile(ctx, turn.User); profile != nil {
		if profile.Introduced {
			greeting = msgWelcomeShort
		} else {
			profile.Introduced = true
			d.store.saveProfile(ctx, profile)
		}
	}

	resp, outcome := d.withOrganisation(ctx, turn, func(TimeTracker, *model.Organisation) (conversation.Response, Outcome) {
		return conversation.Ask().WithSuggestions(quickReplies...), OutcomeGreeted
	})
	return resp.WithPrefix(greeting), outcome
}

// selectOrganisation は選択リストで選ばれた組織を記録し、確認を返す。
func (d *Dispatcher) selectOrganisation(ctx context.Context, turn Turn) (conversation.Response, Outcome) {
	tracker := d.trackers(turn.User.AccessToken)

	org, err := d.resolver.Select(ctx, tracker, turn, turn.OptionKey)
	if err != nil {
		return conversation.Close(msgSelectFailed), OutcomeFailed
	}
	return conversation.Ask(selectedMessage(org.Name)).
		WithSuggestions(quickReplies...).
		WithoutContext(SelectionContext), OutcomeSelected
}

func fallback() conversation.Response {
	return conversation.Ask(msgFallback).WithSuggestions(quickReplies...)
}
