// Package keeping はタイムトラッキングサービス（Keeping API v1）のRESTクライアントを提供する。
// 組織一覧の取得、直近タイムエントリの検索、再開と停止の各操作を含む。
package keeping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/keepingvoice/internal/metrics"
	"github.com/hitoshi/keepingvoice/internal/model"
)

const (
	// DefaultBaseURL はKeeping APIのベースURL。
	DefaultBaseURL = "https://api.keeping.nl/v1/"
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 1 << 20
	userAgent       = "KeepingVoice/1.0"
)

// 操作名。ログとメトリクスのラベルに使用する。
const (
	OpListOrganisations = "list_organisations"
	OpLastTimeEntry     = "last_time_entry"
	OpResumeTimeEntry   = "resume_time_entry"
	OpStopTimeEntry     = "stop_time_entry"
)

// StatusError はAPIが2xx以外のステータスを返したことを表す。
type StatusError struct {
	Operation  string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

// IsNotFound はエラーが404 Not Foundを表すかを判定する。
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// StatusCode はエラーに含まれるHTTPステータスを返す。ネットワークエラーなどの場合は0。
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client はKeeping APIのクライアント。
// 認証トークンを持たず、WithTokenでターンごとのSessionを生成して使用する。
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾にスラッシュがない場合は補う。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, collector metrics.MetricsCollector) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    u,
		logger:     logger,
		metrics:    collector,
	}, nil
}

// WithToken はベアラートークンを束縛したSessionを返す。
// 1ターンの全API呼び出しに同じトークンを使用する。
func (c *Client) WithToken(token string) *Session {
	return &Session{client: c, token: token}
}

// Session はベアラートークンを束縛したAPIセッション。
type Session struct {
	client *Client
	token  string
}

type organisationsResponse struct {
	Organisations []model.Organisation `json:"organisations"`
}

type timeEntryResponse struct {
	TimeEntry *model.TimeEntry `json:"time_entry"`
}

// ListOrganisations は呼び出しユーザーが参照できる組織の一覧を取得する。
// GET /organisations
func (s *Session) ListOrganisations(ctx context.Context) ([]model.Organisation, error) {
	var resp organisationsResponse
	if err := s.do(ctx, OpListOrganisations, http.MethodGet, "organisations", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Organisations == nil {
		return []model.Organisation{}, nil
	}
	return resp.Organisations, nil
}

// LastTimeEntry は指定した組織・種別・フィルタに一致する直近のタイムエントリを取得する。
// GET /{orgId}/time-entries/last?purpose=...&locked=0|ongoing=1
// エントリが存在しない場合のAPIは404を返し、StatusErrorとして呼び出し元に渡す。
func (s *Session) LastTimeEntry(ctx context.Context, organisationID int64, purpose model.Purpose, filter model.EntryFilter) (*model.TimeEntry, error) {
	q := url.Values{}
	q.Set("purpose", string(purpose))
	filter.Apply(q)

	var resp timeEntryResponse
	path := fmt.Sprintf("%d/time-entries/last", organisationID)
	if err := s.do(ctx, OpLastTimeEntry, http.MethodGet, path, q, &resp); err != nil {
		return nil, err
	}
	if resp.TimeEntry == nil {
		return nil, fmt.Errorf("%s: response without time_entry", OpLastTimeEntry)
	}
	return resp.TimeEntry, nil
}

// ResumeTimeEntry はタイムエントリを再開する。
// POST /{orgId}/time-entries/{id}/resume
func (s *Session) ResumeTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error) {
	var resp timeEntryResponse
	path := fmt.Sprintf("%d/time-entries/%d/resume", organisationID, entryID)
	if err := s.do(ctx, OpResumeTimeEntry, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.TimeEntry, nil
}

// StopTimeEntry はタイムエントリを停止する。
// PATCH /{orgId}/time-entries/{id}/stop
func (s *Session) StopTimeEntry(ctx context.Context, organisationID, entryID int64) (*model.TimeEntry, error) {
	var resp timeEntryResponse
	path := fmt.Sprintf("%d/time-entries/%d/stop", organisationID, entryID)
	if err := s.do(ctx, OpStopTimeEntry, http.MethodPatch, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.TimeEntry, nil
}

// do はAPIリクエストを1回だけ実行し、2xxのレスポンスボディをoutにデコードする。
// リトライは行わない。
func (s *Session) do(ctx context.Context, op, method, path string, query url.Values, out any) error {
	c := s.client

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: HTTPリクエストの作成に失敗しました: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordUpstreamLatency(op, time.Since(start))
	if err != nil {
		c.metrics.RecordUpstreamCall(op, 0)
		c.logger.Debug("Keeping APIの呼び出しに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamCall(op, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Keeping APIがエラーステータスを返しました",
			slog.String("operation", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{Operation: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: レスポンスボディの読み取りに失敗しました: %w", op, err)
	}

	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: レスポンスJSONのパースに失敗しました: %w", op, err)
	}

	return nil
}
