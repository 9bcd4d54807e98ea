// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フィード集約層やプロバイダー層から利用する。
type MetricsCollector interface {
	RecordProviderFetchSuccess(provider string)
	RecordProviderFetchFailure(provider string)
	RecordProviderFetchLatency(provider string, duration time.Duration)
	RecordFallbackServed(provider string)
	RecordTokenRefresh(provider string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess   *prometheus.CounterVec
	fetchFail      *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	fallbackServed *prometheus.CounterVec
	tokenRefresh   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unifeed_provider_fetch_success_total",
			Help: "プロバイダーフィード取得成功の合計数",
		}, []string{"provider"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unifeed_provider_fetch_fail_total",
			Help: "プロバイダーフィード取得失敗の合計数",
		}, []string{"provider"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unifeed_provider_fetch_latency_seconds",
			Help:    "プロバイダーフィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		fallbackServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unifeed_fallback_served_total",
			Help: "購読空による人気コンテンツフォールバックの合計数",
		}, []string{"provider"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unifeed_token_refresh_total",
			Help: "アクセストークンリフレッシュの合計数",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.fallbackServed,
		c.tokenRefresh,
	)

	return c
}

// RecordProviderFetchSuccess はフィード取得成功を記録する。
func (c *Collector) RecordProviderFetchSuccess(provider string) {
	c.fetchSuccess.WithLabelValues(provider).Inc()
}

// RecordProviderFetchFailure はフィード取得失敗を記録する。
func (c *Collector) RecordProviderFetchFailure(provider string) {
	c.fetchFail.WithLabelValues(provider).Inc()
}

// RecordProviderFetchLatency はフィード取得のレイテンシを記録する。
func (c *Collector) RecordProviderFetchLatency(provider string, duration time.Duration) {
	c.fetchLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFallbackServed は人気コンテンツフォールバックの発生を記録する。
func (c *Collector) RecordFallbackServed(provider string) {
	c.fallbackServed.WithLabelValues(provider).Inc()
}

// RecordTokenRefresh はアクセストークンリフレッシュを記録する。
func (c *Collector) RecordTokenRefresh(provider string) {
	c.tokenRefresh.WithLabelValues(provider).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
