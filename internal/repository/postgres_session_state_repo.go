package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/keepingvoice/internal/model"
)

// PostgresSessionStateRepo はPostgreSQLを使用したセッション状態リポジトリ。
type PostgresSessionStateRepo struct {
	db *sql.DB
}

// NewPostgresSessionStateRepo はPostgresSessionStateRepoを生成する。
func NewPostgresSessionStateRepo(db *sql.DB) *PostgresSessionStateRepo {
	return &PostgresSessionStateRepo{db: db}
}

// FindByID は指定セッションの状態を取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionStateRepo) FindByID(ctx context.Context, sessionID string) (*model.SessionState, error) {
	state := &model.SessionState{}
	var selected sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT session_id, selected_organisation_id, expires_at, updated_at
		 FROM conversation_sessions
		 WHERE session_id = $1 AND expires_at > now()`,
		sessionID,
	).Scan(&state.SessionID, &selected, &state.ExpiresAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session state: %w", err)
	}

	if selected.Valid {
		id := selected.Int64
		state.SelectedOrganisationID = &id
	}
	return state, nil
}

// Save はセッション状態をUPSERTする。
func (r *PostgresSessionStateRepo) Save(ctx context.Context, state *model.SessionState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_sessions (session_id, selected_organisation_id, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET selected_organisation_id = EXCLUDED.selected_organisation_id,
		     expires_at = EXCLUDED.expires_at,
		     updated_at = EXCLUDED.updated_at`,
		state.SessionID, nullableID(state.SelectedOrganisationID), state.ExpiresAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// nullableID はnilをSQLのNULLに変換する。
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// compile-time interface check
var _ SessionStateRepository = (*PostgresSessionStateRepo)(nil)
