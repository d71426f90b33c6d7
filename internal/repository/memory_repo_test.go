package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/keepingvoice/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMemorySessionStateRepo_SaveAndFind(t *testing.T) {
	repo := NewMemorySessionStateRepo()
	ctx := context.Background()

	err := repo.Save(ctx, &model.SessionState{
		SessionID:              "session-1",
		SelectedOrganisationID: int64Ptr(7),
		ExpiresAt:              time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	state, err := repo.FindByID(ctx, "session-1")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if state == nil || state.SelectedOrganisationID == nil || *state.SelectedOrganisationID != 7 {
		t.Fatalf("state = %+v, want selected 7", state)
	}

	// 取得した値を書き換えても保存済みの状態に影響しない
	*state.SelectedOrganisationID = 99
	again, _ := repo.FindByID(ctx, "session-1")
	if *again.SelectedOrganisationID != 7 {
		t.Errorf("保存済みの状態が呼び出し元の変更の影響を受けた: %d", *again.SelectedOrganisationID)
	}
}

func TestMemorySessionStateRepo_NotFound(t *testing.T) {
	repo := NewMemorySessionStateRepo()

	state, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v, want nil", state)
	}
}

func TestMemorySessionStateRepo_ExpiredIsIgnoredAndPurged(t *testing.T) {
	repo := NewMemorySessionStateRepo()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	repo.Save(ctx, &model.SessionState{SessionID: "old", ExpiresAt: now.Add(time.Minute)})

	now = now.Add(2 * time.Minute)
	state, err := repo.FindByID(ctx, "old")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if state != nil {
		t.Errorf("期限切れの状態は返されるべきではない: %+v", state)
	}

	repo.Save(ctx, &model.SessionState{SessionID: "new", ExpiresAt: now.Add(time.Minute)})
	if repo.Len() != 1 {
		t.Errorf("Len() = %d, want 1（期限切れは保存時に削除される）", repo.Len())
	}
}

func TestMemoryUserProfileRepo_SaveKeepsCreatedAt(t *testing.T) {
	repo := NewMemoryUserProfileRepo()
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo.Save(ctx, &model.UserProfile{UserID: "user-1", Introduced: true, CreatedAt: created})
	repo.Save(ctx, &model.UserProfile{
		UserID:                 "user-1",
		Introduced:             true,
		SelectedOrganisationID: int64Ptr(3),
		CreatedAt:              created.Add(time.Hour),
	})

	profile, err := repo.FindByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUserID がエラーを返した: %v", err)
	}
	if profile == nil {
		t.Fatal("profile = nil")
	}
	if !profile.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", profile.CreatedAt, created)
	}
	if profile.SelectedOrganisationID == nil || *profile.SelectedOrganisationID != 3 {
		t.Errorf("SelectedOrganisationID = %v, want 3", profile.SelectedOrganisationID)
	}
}

func TestMemoryUserProfileRepo_NotFound(t *testing.T) {
	repo := NewMemoryUserProfileRepo()

	profile, err := repo.FindByUserID(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("FindByUserID がエラーを返した: %v", err)
	}
	if profile != nil {
		t.Errorf("profile = %+v, want nil", profile)
	}
}
