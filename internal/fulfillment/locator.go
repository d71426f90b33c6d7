package fulfillment

import (
	"context"
	"log/slog"

	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/model"
)

// Locator は直近のタイムエントリを検索する。
type Locator struct {
	logger *slog.Logger
}

// NewLocator はLocatorを生成する。
func NewLocator(logger *slog.Logger) *Locator {
	return &Locator{logger: logger}
}

// FindLast は組織・種別・フィルタに一致する直近のエントリを返す。
// サービスが404を返した場合はエントリなしとして (nil, nil) を返す。
// それ以外の失敗はここでログに記録してから返す。
func (l *Locator) FindLast(ctx context.Context, tracker TimeTracker, organisationID int64, purpose model.Purpose, filter model.EntryFilter) (*model.TimeEntry, error) {
	entry, err := tracker.LastTimeEntry(ctx, organisationID, purpose, filter)
	if keeping.IsNotFound(err) {
		l.logger.Debug("一致するタイムエントリはありません",
			slog.Int64("organisation_id", organisationID),
			slog.String("purpose", string(purpose)),
			slog.String("filter", string(filter)),
		)
		return nil, nil
	}
	if err != nil {
		l.logger.Error("直近のタイムエントリの取得に失敗しました",
			slog.String("operation", keeping.OpLastTimeEntry),
			slog.Int64("organisation_id", organisationID),
			slog.String("purpose", string(purpose)),
			slog.Int("status_code", keeping.StatusCode(err)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return entry, nil
}
