// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// organisationOptionPrefix は組織選択リストのオプションキーの接頭辞。
const organisationOptionPrefix = "organisation_"

// OrganisationFeatures は組織ごとに有効化された機能フラグを表す。
type OrganisationFeatures struct {
	Breaks bool `json:"breaks"`
}

// Organisation はタイムトラッキングサービス上の組織を表す。
// リクエストごとに取得するスナップショットであり、リクエストを跨いでキャッシュしない。
type Organisation struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name"`
	Features OrganisationFeatures `json:"features"`
}

// OptionKey は組織選択リストで使用する安定したオプションキーを返す。
func (o Organisation) OptionKey() string {
	return OrganisationOptionKey(o.ID)
}

// BreaksEnabled は組織で休憩登録が有効かどうかを返す。
func (o Organisation) BreaksEnabled() bool {
	return o.Features.Breaks
}

// OrganisationOptionKey は組織IDからオプションキー（organisation_<id>）を生成する。
func OrganisationOptionKey(id int64) string {
	return organisationOptionPrefix + strconv.FormatInt(id, 10)
}

// ParseOrganisationOptionKey はオプションキーから組織IDを取り出す。
func ParseOrganisationOptionKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, organisationOptionPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected option key: %q", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid organisation id in option key %q: %w", key, err)
	}
	return id, nil
}

// FindOrganisation は一覧から指定IDの組織を探す。見つからない場合はnilを返す。
func FindOrganisation(organisations []Organisation, id int64) *Organisation {
	for i := range organisations {
		if organisations[i].ID == id {
			return &organisations[i]
		}
	}
	return nil
}
