// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// トークン検証結果のラベル値。
const (
	VerifyAccepted = "accepted"
	VerifyMissing  = "missing"
	VerifyInvalid  = "invalid"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(stage, outcome string)
	RecordUserCreated()
	RecordTokenVerification(result string)
	RecordProviderLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	usersCreated    prometheus.Counter
	verifications   *prometheus.CounterVec
	providerLatency prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minishop_login_total",
			Help: "ログイン試行の合計数（終了ステージ・結果別）",
		}, []string{"stage", "outcome"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minishop_users_created_total",
			Help: "初回ログインで作成されたユーザーの合計数",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minishop_token_verifications_total",
			Help: "トークン検証の合計数（結果別）",
		}, []string{"result"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minishop_provider_latency_seconds",
			Help:    "IDプロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minishop_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.usersCreated,
		c.verifications,
		c.providerLatency,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログインの終了ステージと結果を記録する。
func (c *Collector) RecordLogin(stage, outcome string) {
	c.logins.WithLabelValues(stage, outcome).Inc()
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordTokenVerification はトークン検証結果を記録する。
func (c *Collector) RecordTokenVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

// RecordProviderLatency はIDプロバイダー呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(duration time.Duration) {
	c.providerLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
