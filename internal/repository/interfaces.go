// Package repository はデータ永続化のインターフェースを定義する。
// いずれのリポジトリも識別子を明示的な引数として受け取り、暗黙の状態を持たない。
package repository

import (
	"context"

	"github.com/hitoshi/keepingvoice/internal/model"
)

// SessionStateRepository は会話セッション単位の一時データの永続化インターフェース。
type SessionStateRepository interface {
	// FindByID は指定セッションの状態を取得する。存在しないか期限切れの場合はnilを返す。
	FindByID(ctx context.Context, sessionID string) (*model.SessionState, error)

	// Save はセッション状態を作成または上書きする。
	Save(ctx context.Context, state *model.SessionState) error
}

// UserProfileRepository は検証済みユーザーごとの永続データの永続化インターフェース。
type UserProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error)

	// Save はプロフィールを作成または上書きする。
	Save(ctx context.Context, profile *model.UserProfile) error
}
