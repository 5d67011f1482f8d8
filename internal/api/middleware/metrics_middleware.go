package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
)

// statusRecorder はレスポンスのステータスコードを記録するためのラッパーです。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack は下位の ResponseWriter へ委譲します。
// WebSocketのアップグレード（/api/ws）はコネクションの乗っ取りを必要とするため、
// これがないとこのミドルウェア配下でハンドシェイクが失敗します。
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("下位のResponseWriterがhttp.Hijackerを実装していません")
	}
	return hijacker.Hijack()
}

// Flush は下位の ResponseWriter へ委譲します。
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// NewMetricsMiddleware はリクエスト数とレイテンシを記録するミドルウェアを返します。
func NewMetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			collector.RecordHTTPRequest(r.Method, rec.status, time.Since(start))
		})
	}
}
