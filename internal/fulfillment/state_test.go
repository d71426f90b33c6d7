package fulfillment

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/keepingvoice/internal/model"
	"github.com/hitoshi/keepingvoice/internal/repository"
	"github.com/hitoshi/keepingvoice/internal/security"
)

var errStorageDown = errors.New("db timeout")

// unreadableProfiles は読み取りだけが失敗するプロフィールリポジトリ。
type unreadableProfiles struct {
	*repository.MemoryUserProfileRepo
	saves int
}

func (u *unreadableProfiles) FindByUserID(context.Context, string) (*model.UserProfile, error) {
	return nil, errStorageDown
}

func (u *unreadableProfiles) Save(ctx context.Context, profile *model.UserProfile) error {
	u.saves++
	return u.MemoryUserProfileRepo.Save(ctx, profile)
}

// brokenSessions は読み書きとも失敗するセッションリポジトリ。
type brokenSessions struct{}

func (brokenSessions) FindByID(context.Context, string) (*model.SessionState, error) {
	return nil, errStorageDown
}

func (brokenSessions) Save(context.Context, *model.SessionState) error {
	return errStorageDown
}

func newDispatcherWith(t *testing.T, tracker TimeTracker, sessions repository.SessionStateRepository, profiles repository.UserProfileRepository) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	d := NewDispatcher(DispatcherDeps{
		Trackers:  func(string) TimeTracker { return tracker },
		Sessions:  sessions,
		Profiles:  profiles,
		Sanitizer: security.NewNameSanitizer(),
		Logger:    newTestLogger(logs),
	})
	return d, logs
}

func seededUnreadableProfiles(t *testing.T, userID string) *unreadableProfiles {
	t.Helper()
	mem := repository.NewMemoryUserProfileRepo()
	err := mem.Save(context.Background(), &model.UserProfile{
		UserID:                 userID,
		Introduced:             true,
		SelectedOrganisationID: int64Ptr(globex.ID),
	})
	if err != nil {
		t.Fatalf("プロフィールの保存に失敗: %v", err)
	}
	return &unreadableProfiles{MemoryUserProfileRepo: mem}
}

func assertProfileIntact(t *testing.T, profiles *unreadableProfiles, userID string) {
	t.Helper()
	if profiles.saves != 0 {
		t.Errorf("読み取りに失敗したプロフィールを保存してはならない: saves=%d", profiles.saves)
	}
	p, err := profiles.MemoryUserProfileRepo.FindByUserID(context.Background(), userID)
	if err != nil || p == nil {
		t.Fatalf("プロフィールが失われた: %+v, %v", p, err)
	}
	if !p.Introduced || p.SelectedOrganisationID == nil || *p.SelectedOrganisationID != globex.ID {
		t.Errorf("プロフィールが上書きされた: %+v", p)
	}
}

func TestWelcome_ProfileReadFailure_KeepsStoredProfile(t *testing.T) {
	tracker := &mockTracker{listFn: listOf(acme, globex)}
	turn := verifiedTurn(IntentWelcome)
	profiles := seededUnreadableProfiles(t, turn.User.ID)
	d, logs := newDispatcherWith(t, tracker, repository.NewMemorySessionStateRepo(), profiles)

	resp := d.Dispatch(context.Background(), turn)

	if !resp.ExpectsUserResponse() {
		t.Error("読み取りに失敗しても会話を続けるべき")
	}
	if len(resp.Prompts) == 0 || resp.Prompts[0] != msgWelcomeLong {
		t.Errorf("Prompts = %v, want long welcome first", resp.Prompts)
	}
	assertProfileIntact(t, profiles, turn.User.ID)
	if !strings.Contains(logs.String(), "ユーザープロフィールの取得に失敗しました") {
		t.Errorf("警告ログが出力されていない: %s", logs.String())
	}
}

func TestSelect_ProfileReadFailure_KeepsStoredProfile(t *testing.T) {
	tracker := &mockTracker{listFn: listOf(acme, globex)}
	turn := verifiedTurn(IntentSelectOrganisation)
	turn.OptionKey = "organisation_1"
	profiles := seededUnreadableProfiles(t, turn.User.ID)
	sessions := repository.NewMemorySessionStateRepo()
	d, _ := newDispatcherWith(t, tracker, sessions, profiles)

	resp := d.Dispatch(context.Background(), turn)

	if !resp.ExpectsUserResponse() {
		t.Error("選択は読み取り失敗でも成功すべき")
	}
	assertProfileIntact(t, profiles, turn.User.ID)

	s, err := sessions.FindByID(context.Background(), turn.SessionID)
	if err != nil || s == nil || s.SelectedOrganisationID == nil || *s.SelectedOrganisationID != acme.ID {
		t.Errorf("セッションに選択が記録されていない: %+v, %v", s, err)
	}
}

func TestResolve_SessionStoreFailure_TreatedAsNoSelection(t *testing.T) {
	tracker := &mockTracker{listFn: listOf(acme, globex)}
	d, logs := newDispatcherWith(t, tracker, brokenSessions{}, repository.NewMemoryUserProfileRepo())

	res, err := d.resolver.Resolve(context.Background(), tracker, anonymousTurn(IntentStartWorkTimer))
	if err != nil {
		t.Fatalf("Resolve がエラーを返した: %v", err)
	}
	if !res.NeedsSelection() {
		t.Errorf("セッション状態が読めない場合は選択を求めるべき: %+v", res)
	}
	if !strings.Contains(logs.String(), "セッション状態の取得に失敗しました") {
		t.Errorf("警告ログが出力されていない: %s", logs.String())
	}
}

func TestSelect_SessionSaveFailure_StillSelects(t *testing.T) {
	tracker := &mockTracker{listFn: listOf(acme, globex)}
	d, logs := newDispatcherWith(t, tracker, brokenSessions{}, repository.NewMemoryUserProfileRepo())

	org, err := d.resolver.Select(context.Background(), tracker, anonymousTurn(IntentSelectOrganisation), "organisation_2")
	if err != nil {
		t.Fatalf("Select がエラーを返した: %v", err)
	}
	if org.ID != globex.ID {
		t.Errorf("org.ID = %d, want %d", org.ID, globex.ID)
	}
	if !strings.Contains(logs.String(), "セッション状態の保存に失敗しました") {
		t.Errorf("警告ログが出力されていない: %s", logs.String())
	}
}
