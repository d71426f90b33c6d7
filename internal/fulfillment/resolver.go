package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/keeping"
	"github.com/hitoshi/keepingvoice/internal/model"
)

// Resolution は組織解決の結果。
// Organisationがnilの場合はユーザーにChoicesから選ばせる必要がある。
type Resolution struct {
	Organisation *model.Organisation
	Choices      []model.Organisation
}

// NeedsSelection は組織の選択をユーザーに求める必要があるかを返す。
func (r Resolution) NeedsSelection() bool {
	return r.Organisation == nil
}

// Resolver はターンで操作対象とする組織を決定する。
type Resolver struct {
	store     *StateStore
	sanitizer NameSanitizer
	logger    *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(store *StateStore, sanitizer NameSanitizer, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:     store,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Resolve は操作対象の組織を決定する。
//
//   - 組織が0件の場合は model.ErrNoOrganisations を返す。
//   - 組織が1件の場合は保存済みの選択に関係なくその組織を返す。
//   - 2件以上の場合はセッション、検証済みユーザーならプロフィールの順に候補IDを探す。
//     候補が一覧に存在しない場合は未選択として扱う。
//
// 一覧の取得に失敗した場合は model.ErrOrganisationsUnavailable を返す。
func (r *Resolver) Resolve(ctx context.Context, tracker TimeTracker, turn Turn) (Resolution, error) {
	organisations, err := r.listOrganisations(ctx, tracker)
	if err != nil {
		return Resolution{}, err
	}

	switch len(organisations) {
	case 0:
		return Resolution{}, model.ErrNoOrganisations
	case 1:
		return Resolution{Organisation: &organisations[0]}, nil
	}

	if id, ok := r.candidate(ctx, turn); ok {
		if org := model.FindOrganisation(organisations, id); org != nil {
			return Resolution{Organisation: org}, nil
		}
		r.logger.Info("保存済みの組織が一覧に存在しないため選択し直します",
			slog.String("session_id", turn.SessionID),
			slog.Int64("organisation_id", id),
		)
	}

	return Resolution{Choices: organisations}, nil
}

// candidate は候補の組織IDを返す。
// プロフィールから得た候補はセッションにも記録する。
func (r *Resolver) candidate(ctx context.Context, turn Turn) (int64, bool) {
	if id, ok := r.store.sessionSelection(ctx, turn.SessionID); ok {
		return id, true
	}

	profile := r.store.loadProfile(ctx, turn.User)
	if profile == nil || profile.SelectedOrganisationID == nil {
		return 0, false
	}
	id := *profile.SelectedOrganisationID
	r.store.rememberSelection(ctx, turn.SessionID, id)
	return id, true
}

// Select はオプションキーに対応する組織を選択し、セッションに記録する。
// 検証済みユーザーの場合はプロフィールにも記録する。
// 組織一覧は改めて取得し、キーが一覧に存在しない場合は model.ErrUnknownOption を返す。
func (r *Resolver) Select(ctx context.Context, tracker TimeTracker, turn Turn, optionKey string) (*model.Organisation, error) {
	organisations, err := r.listOrganisations(ctx, tracker)
	if err != nil {
		return nil, err
	}

	id, err := model.ParseOrganisationOptionKey(optionKey)
	if err != nil {
		r.logger.Warn("不正なオプションキーが選択されました",
			slog.String("option_key", optionKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", model.ErrUnknownOption, err)
	}

	org := model.FindOrganisation(organisations, id)
	if org == nil {
		r.logger.Warn("選択された組織が一覧に存在しません",
			slog.String("option_key", optionKey),
			slog.Int64("organisation_id", id),
		)
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownOption, optionKey)
	}

	r.store.rememberSelection(ctx, turn.SessionID, org.ID)
	if profile := r.store.loadProfile(ctx, turn.User); profile != nil {
		profile.SelectedOrganisationID = &org.ID
		r.store.saveProfile(ctx, profile)
	}

	return org, nil
}

// listOrganisations は組織一覧を取得し、表示名を整える。
func (r *Resolver) listOrganisations(ctx context.Context, tracker TimeTracker) ([]model.Organisation, error) {
	organisations, err := tracker.ListOrganisations(ctx)
	if err != nil {
		r.logger.Error("組織一覧の取得に失敗しました",
			slog.String("operation", keeping.OpListOrganisations),
			slog.Int("status_code", keeping.StatusCode(err)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", model.ErrOrganisationsUnavailable, err)
	}
	for i := range organisations {
		organisations[i].Name = r.sanitizer.Sanitize(organisations[i].Name)
	}
	return organisations, nil
}

// selectionPrompt は組織の選択を求める応答を生成する。
// 選択コンテキストは次の1ターンだけ有効にする。
func selectionPrompt(choices []model.Organisation) conversation.Response {
	items := make([]conversation.ListItem, len(choices))
	for i, org := range choices {
		items[i] = conversation.ListItem{Key: org.OptionKey(), Title: org.Name}
	}
	return conversation.Ask(msgSelectOrganisation).
		WithList(conversation.SelectionList{Title: msgSelectionListTitle, Items: items}).
		WithContext(SelectionContext, 1)
}
