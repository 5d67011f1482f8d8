// Package metrics はPrometheusメトリクスの収集と公開を提供します。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はHTTPリクエストとライフサイクル操作のメトリクスを収集します。
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  prometheus.Histogram
	operations   *prometheus.CounterVec
}

// NewCollector は新しい Collector を生成し、専用のレジストリへ登録します。
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nidan_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nidan_http_request_duration_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nidan_operations_total",
			Help: "ライフサイクル操作の成功/失敗数",
		}, []string{"operation", "result"}),
	}

	c.registry.MustRegister(c.httpRequests, c.httpLatency, c.operations)
	return c
}

// RecordHTTPRequest はHTTPリクエスト1件を記録します。
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// RecordOperation はライフサイクル操作の結果を記録します。
func (c *Collector) RecordOperation(operation string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.operations.WithLabelValues(operation, result).Inc()
}

// Handler は /metrics 用のHTTPハンドラーを返します。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
