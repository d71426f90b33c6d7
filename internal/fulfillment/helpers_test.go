package fulfillment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/model"
	"github.com/hitoshi/keepingvoice/internal/repository"
	"github.com/hitoshi/keepingvoice/internal/security"
)

// --- モック ---

var errUnexpectedCall = errors.New("unexpected call")

// mockTracker はTimeTrackerのモック。呼び出しをcallsに記録する。
type mockTracker struct {
	mu       sync.Mutex
	calls    []string
	listFn   func(ctx context.Context) ([]model.Organisation, error)
	lastFn   func(ctx context.Context, organisationID int64, purpose model.Purpose, filter model.EntryFilter) (*model.TimeEntry, error)
	resumeFn func(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error)
	stopFn   func(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error)
}

func (m *mockTracker) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockTracker) ListOrganisations(ctx context.Context) ([]model.Organisation, error) {
	m.record("list")
	if m.listFn == nil {
		return nil, errUnexpectedCall
	}
	return m.listFn(ctx)
}

func (m *mockTracker) LastTimeEntry(ctx context.Context, organisationID int64, purpose model.Purpose, filter model.EntryFilter) (*model.TimeEntry, error) {
	m.record(fmt.Sprintf("last:%d:%s:%s", organisationID, purpose, filter))
	if m.lastFn == nil {
		return nil, errUnexpectedCall
	}
	return m.lastFn(ctx, organisationID, purpose, filter)
}

func (m *mockTracker) ResumeTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error) {
	m.record(fmt.Sprintf("resume:%d:%d", organisationID, entryID))
	if m.resumeFn == nil {
		return nil, errUnexpectedCall
	}
	return m.resumeFn(ctx, organisationID, entryID)
}

func (m *mockTracker) StopTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error) {
	m.record(fmt.Sprintf("stop:%d:%d", organisationID, entryID))
	if m.stopFn == nil {
		return nil, errUnexpectedCall
	}
	return m.stopFn(ctx, organisationID, entryID)
}

// called は指定した接頭辞で始まる呼び出しがあったかを返す。
func (m *mockTracker) called(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.ContainsFunc(m.calls, func(c string) bool {
		return len(c) >= len(prefix) && c[:len(prefix)] == prefix
	})
}

func listOf(orgs ...model.Organisation) func(context.Context) ([]model.Organisation, error) {
	return func(context.Context) ([]model.Organisation, error) {
		return slices.Clone(orgs), nil
	}
}

func entryOf(entry model.TimeEntry) func(context.Context, int64, model.Purpose, model.EntryFilter) (*model.TimeEntry, error) {
	return func(context.Context, int64, model.Purpose, model.EntryFilter) (*model.TimeEntry, error) {
		e := entry
		return &e, nil
	}
}

func lastFails(status int) func(context.Context, int64, model.Purpose, model.EntryFilter) (*model.TimeEntry, error) {
	return func(context.Context, int64, model.Purpose, model.EntryFilter) (*model.TimeEntry, error) {
		return nil, &keeping.StatusError{Operation: keeping.OpLastTimeEntry, StatusCode: status}
	}
}

func echoEntry(ongoing bool) func(context.Context, int64, int64) (*model.TimeEntry, error) {
	return func(_ context.Context, _ int64, entryID int64) (*model.TimeEntry, error) {
		return &model.TimeEntry{ID: entryID, Ongoing: ongoing}, nil
	}
}

// recordingCollector はメトリクス呼び出しを記録するモック。
type recordingCollector struct {
	intents []string
}

func (r *recordingCollector) RecordIntent(intent, outcome string) {
	r.intents = append(r.intents, intent+"/"+outcome)
}
func (r *recordingCollector) RecordUpstreamCall(string, int) {}
func (r *recordingCollector) RecordUpstreamLatency(string, time.Duration) {}
func (r *recordingCollector) RecordWebhookStatus(int) {}

// --- フィクスチャ ---

var (
	acme   = model.Organisation{ID: 1, Name: "Acme", Features: model.OrganisationFeatures{Breaks: true}}
	globex = model.Organisation{ID: 2, Name: "Globex", Features: model.OrganisationFeatures{Breaks: false}}
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testEnv はテスト用に組み立てた依存関係一式。
type testEnv struct {
	dispatcher *Dispatcher
	resolver   *Resolver
	sessions   *repository.MemorySessionStateRepo
	profiles   *repository.MemoryUserProfileRepo
	collector  *recordingCollector
	logs       *bytes.Buffer
}

func newTestEnv(t *testing.T, tracker TimeTracker) *testEnv {
	t.Helper()
	logs := &bytes.Buffer{}
	env := &testEnv{
		sessions:  repository.NewMemorySessionStateRepo(),
		profiles:  repository.NewMemoryUserProfileRepo(),
		collector: &recordingCollector{},
		logs:      logs,
	}
	env.dispatcher = NewDispatcher(DispatcherDeps{
		Trackers:  func(string) TimeTracker { return tracker },
		Sessions:  env.sessions,
		Profiles:  env.profiles,
		Sanitizer: security.NewNameSanitizer(),
		Metrics:   env.collector,
		Logger:    newTestLogger(logs),
	})
	env.resolver = env.dispatcher.resolver
	return env
}

func (e *testEnv) saveSessionSelection(t *testing.T, sessionID string, id int64) {
	t.Helper()
	err := e.sessions.Save(context.Background(), &model.SessionState{
		SessionID:              sessionID,
		SelectedOrganisationID: &id,
		ExpiresAt:              time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("セッション状態の保存に失敗: %v", err)
	}
}

func (e *testEnv) saveProfile(t *testing.T, profile model.UserProfile) {
	t.Helper()
	if err := e.profiles.Save(context.Background(), &profile); err != nil {
		t.Fatalf("プロフィールの保存に失敗: %v", err)
	}
}

func (e *testEnv) profile(t *testing.T, userID string) *model.UserProfile {
	t.Helper()
	p, err := e.profiles.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("プロフィールの取得に失敗: %v", err)
	}
	return p
}

func (e *testEnv) sessionSelection(t *testing.T, sessionID string) *int64 {
	t.Helper()
	s, err := e.sessions.FindByID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("セッション状態の取得に失敗: %v", err)
	}
	if s == nil {
		return nil
	}
	return s.SelectedOrganisationID
}

func verifiedTurn(intent Intent) Turn {
	return Turn{
		SessionID: "projects/p/agent/sessions/s1",
		User:      User{ID: "user-1", Verified: true, AccessToken: "token"},
		Intent:    intent,
	}
}

func anonymousTurn(intent Intent) Turn {
	return Turn{
		SessionID: "projects/p/agent/sessions/s1",
		User:      User{ID: "user-1", Verified: false, AccessToken: "token"},
		Intent:    intent,
	}
}

func int64Ptr(v int64) *int64 { return &v }
