package fulfillment

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/keepingvoice/internal/model"
	"github.com/hitoshi/keepingvoice/internal/repository"
)

// DefaultSessionTTL はセッション状態の既定の有効期間。
const DefaultSessionTTL = 30 * time.Minute

// StateStore はセッション状態とユーザープロフィールの読み書きをまとめる。
// ストレージの失敗は会話を止めず、警告ログを出して「未設定」として扱う。
type StateStore struct {
	sessions repository.SessionStateRepository
	profiles repository.UserProfileRepository
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewStateStore はStateStoreを生成する。ttlが0以下の場合はDefaultSessionTTLを使用する。
func NewStateStore(
	sessions repository.SessionStateRepository,
	profiles repository.UserProfileRepository,
	ttl time.Duration,
	logger *slog.Logger,
) *StateStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &StateStore{
		sessions: sessions,
		profiles: profiles,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// sessionSelection はセッションに記録された組織IDを返す。
func (s *StateStore) sessionSelection(ctx context.Context, sessionID string) (int64, bool) {
	state, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		s.logger.Warn("セッション状態の取得に失敗しました",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	if state == nil || state.SelectedOrganisationID == nil {
		return 0, false
	}
	return *state.SelectedOrganisationID, true
}

// rememberSelection はセッションに組織IDを記録し、有効期限を延長する。
func (s *StateStore) rememberSelection(ctx context.Context, sessionID string, organisationID int64) {
	now := s.now()
	state := &model.SessionState{
		SessionID:              sessionID,
		SelectedOrganisationID: &organisationID,
		ExpiresAt:              now.Add(s.ttl),
		UpdatedAt:              now,
	}
	if err := s.sessions.Save(ctx, state); err != nil {
		s.logger.Warn("セッション状態の保存に失敗しました",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// loadProfile は検証済みユーザーのプロフィールを返す。
// 未作成の場合は新しいプロフィールを返す。
// 匿名ユーザーの場合と読み取りに失敗した場合はnilを返し、呼び出し元は保存を行わない。
// 読めなかったプロフィールを空の値で上書きしないため。
func (s *StateStore) loadProfile(ctx context.Context, user User) *model.UserProfile {
	if !user.durable() {
		return nil
	}
	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		s.logger.Warn("ユーザープロフィールの取得に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if profile == nil {
		now := s.now()
		profile = &model.UserProfile{UserID: user.ID, CreatedAt: now, UpdatedAt: now}
	}
	return profile
}

// saveProfile はプロフィールを保存する。
func (s *StateStore) saveProfile(ctx context.Context, profile *model.UserProfile) {
	profile.UpdatedAt = s.now()
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Warn("ユーザープロフィールの保存に失敗しました",
			slog.String("user_id", profile.UserID),
			slog.String("error", err.Error()),
		)
	}
}
