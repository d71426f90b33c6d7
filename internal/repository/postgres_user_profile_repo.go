package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/keepingvoice/internal/model"
)

// PostgresUserProfileRepo はPostgreSQLを使用したユーザープロフィールリポジトリ。
type PostgresUserProfileRepo struct {
	db *sql.DB
}

// NewPostgresUserProfileRepo はPostgresUserProfileRepoを生成する。
func NewPostgresUserProfileRepo(db *sql.DB) *PostgresUserProfileRepo {
	return &PostgresUserProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresUserProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	var selected sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, selected_organisation_id, introduced, created_at, updated_at
		 FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &selected, &profile.Introduced, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}

	if selected.Valid {
		id := selected.Int64
		profile.SelectedOrganisationID = &id
	}
	return profile, nil
}

// Save はプロフィールをUPSERTする。created_atは初回作成時の値を維持する。
func (r *PostgresUserProfileRepo) Save(ctx context.Context, profile *model.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, selected_organisation_id, introduced, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET selected_organisation_id = EXCLUDED.selected_organisation_id,
		     introduced = EXCLUDED.introduced,
		     updated_at = EXCLUDED.updated_at`,
		profile.UserID, nullableID(profile.SelectedOrganisationID), profile.Introduced,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserProfileRepository = (*PostgresUserProfileRepo)(nil)
