// Package metrics 导出回调管道的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 消息处理结果
const (
	OutcomeReplied       = "replied"
	OutcomeAcked         = "acked"
	OutcomeDuplicate     = "duplicate"
	OutcomeHandlerError  = "handler_error"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeDecryptFailed = "decrypt_failed"
	OutcomeMalformed     = "malformed"
)

// Metrics 汇总管道指标，nil 值可安全调用
type Metrics struct {
	messages    *prometheus.CounterVec
	duration    prometheus.Histogram
	cacheErrors *prometheus.CounterVec
	tokenFetch  *prometheus.CounterVec
}

// New 在 reg 上注册指标
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wechat_messages_total",
				Help: "Total number of callback messages by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wechat_pipeline_duration_seconds",
				Help:    "Callback pipeline latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wechat_cache_errors_total",
				Help: "Total number of cache operations that failed and were degraded",
			},
			[]string{"op"},
		),
		tokenFetch: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wechat_access_token_refresh_total",
				Help: "Total number of access_token refresh calls by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) Message(kind, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) TokenRefresh(status string) {
	if m == nil {
		return
	}
	m.tokenFetch.WithLabelValues(status).Inc()
}
