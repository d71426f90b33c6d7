// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 会話フローとタイムトラッキングAPIクライアントから利用する。
type MetricsCollector interface {
	RecordIntent(intent string, outcome string)
	RecordUpstreamCall(operation string, statusCode int)
	RecordUpstreamLatency(operation string, duration time.Duration)
	RecordWebhookStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	intents         *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	webhookStatus   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepingvoice_intents_total",
			Help: "インテント別・結果別の処理数",
		}, []string{"intent", "outcome"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepingvoice_upstream_calls_total",
			Help: "タイムトラッキングAPI呼び出しの操作別・ステータス別の合計数",
		}, []string{"operation", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keepingvoice_upstream_latency_seconds",
			Help:    "タイムトラッキングAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		webhookStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepingvoice_webhook_status_total",
			Help: "Webhookレスポンスのステータスコード別の数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.intents,
		c.upstreamCalls,
		c.upstreamLatency,
		c.webhookStatus,
	)

	return c
}

// RecordIntent はインテントの処理結果を記録する。
func (c *Collector) RecordIntent(intent string, outcome string) {
	c.intents.WithLabelValues(intent, outcome).Inc()
}

// RecordUpstreamCall はAPI呼び出しの結果を記録する。
// statusCodeが0の場合はネットワークエラーとして扱う。
func (c *Collector) RecordUpstreamCall(operation string, statusCode int) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.upstreamCalls.WithLabelValues(operation, status).Inc()
}

// RecordUpstreamLatency はAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(operation string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWebhookStatus はWebhookレスポンスのステータスコードを記録する。
func (c *Collector) RecordWebhookStatus(statusCode int) {
	c.webhookStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordIntent(string, string) {}
func (Nop) RecordUpstreamCall(string, int) {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordWebhookStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
