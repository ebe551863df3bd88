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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordWaitlistSubmission(outcome string)
	RecordCMSFetchSuccess()
	RecordCMSFetchFailure()
	RecordCMSFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// ウェイトリスト登録結果のラベル値。
const (
	OutcomeAccepted    = "accepted"
	OutcomeDuplicate   = "duplicate"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeHoneypot    = "honeypot"
	OutcomeError       = "error"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	waitlistSubmissions *prometheus.CounterVec
	cmsFetchSuccess     prometheus.Counter
	cmsFetchFail        prometheus.Counter
	cmsFetchLatency     prometheus.Histogram
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		waitlistSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteapi_waitlist_submissions_total",
			Help: "ウェイトリスト登録試行の結果別合計数",
		}, []string{"outcome"}),
		cmsFetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siteapi_cms_fetch_success_total",
			Help: "CMS取得成功の合計数",
		}),
		cmsFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siteapi_cms_fetch_fail_total",
			Help: "CMS取得失敗の合計数",
		}),
		cmsFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "siteapi_cms_fetch_latency_seconds",
			Help:    "CMS取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteapi_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.waitlistSubmissions,
		c.cmsFetchSuccess,
		c.cmsFetchFail,
		c.cmsFetchLatency,
		c.httpStatus,
	)

	return c
}

// RecordWaitlistSubmission はウェイトリスト登録試行の結果を記録する。
func (c *Collector) RecordWaitlistSubmission(outcome string) {
	c.waitlistSubmissions.WithLabelValues(outcome).Inc()
}

// RecordCMSFetchSuccess はCMS取得成功を記録する。
func (c *Collector) RecordCMSFetchSuccess() {
	c.cmsFetchSuccess.Inc()
}

// RecordCMSFetchFailure はCMS取得失敗を記録する。
func (c *Collector) RecordCMSFetchFailure() {
	c.cmsFetchFail.Inc()
}

// RecordCMSFetchLatency はCMS取得のレイテンシを記録する。
func (c *Collector) RecordCMSFetchLatency(duration time.Duration) {
	c.cmsFetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
