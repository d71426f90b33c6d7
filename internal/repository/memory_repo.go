package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/keepingvoice/internal/model"
)

// MemorySessionStateRepo はプロセス内メモリを使用したセッション状態リポジトリ。
// DATABASE_URL未設定時の開発用。期限切れの状態は読み取り時に無視し、保存時に掃除する。
type MemorySessionStateRepo struct {
	mu     sync.RWMutex
	states map[string]model.SessionState
	now    func() time.Time
}

// NewMemorySessionStateRepo はMemorySessionStateRepoを生成する。
func NewMemorySessionStateRepo() *MemorySessionStateRepo {
	return &MemorySessionStateRepo{
		states: make(map[string]model.SessionState),
		now:    time.Now,
	}
}

// FindByID は指定セッションの状態を取得する。期限切れの場合はnilを返す。
func (r *MemorySessionStateRepo) FindByID(ctx context.Context, sessionID string) (*model.SessionState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[sessionID]
	if !ok || !state.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	state.SelectedOrganisationID = copyID(state.SelectedOrganisationID)
	return &state, nil
}

// Save はセッション状態を保存する。
func (r *MemorySessionStateRepo) Save(ctx context.Context, state *model.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, s := range r.states {
		if !s.ExpiresAt.After(now) {
			delete(r.states, id)
		}
	}

	stored := *state
	stored.SelectedOrganisationID = copyID(state.SelectedOrganisationID)
	r.states[state.SessionID] = stored
	return nil
}

// Len は保持しているセッション数を返す。テスト用。
func (r *MemorySessionStateRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// MemoryUserProfileRepo はプロセス内メモリを使用したユーザープロフィールリポジトリ。
type MemoryUserProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]model.UserProfile
}

// NewMemoryUserProfileRepo はMemoryUserProfileRepoを生成する。
func NewMemoryUserProfileRepo() *MemoryUserProfileRepo {
	return &MemoryUserProfileRepo{
		profiles: make(map[string]model.UserProfile),
	}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *MemoryUserProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	profile.SelectedOrganisationID = copyID(profile.SelectedOrganisationID)
	return &profile, nil
}

// Save はプロフィールを保存する。created_atは初回保存時の値を維持する。
func (r *MemoryUserProfileRepo) Save(ctx context.Context, profile *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *profile
	stored.SelectedOrganisationID = copyID(profile.SelectedOrganisationID)
	if existing, ok := r.profiles[profile.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.profiles[profile.UserID] = stored
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var (
	_ SessionStateRepository = (*MemorySessionStateRepo)(nil)
	_ UserProfileRepository  = (*MemoryUserProfileRepo)(nil)
)
