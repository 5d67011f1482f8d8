package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
)

// TestNewMetricsMiddleware_RecordsStatus はステータスコード別の記録をテストします。
func TestNewMetricsMiddleware_RecordsStatus(t *testing.T) {
	collector := metrics.NewCollector()
	handler := NewMetricsMiddleware(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected wrapped handler status 404 to pass through, but got %d", rec.Code)
	}

	// /metrics 出力にステータスラベル付きでカウントされていることを確認
	metricsRec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(metricsRec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(metricsRec.Body)
	if !strings.Contains(string(body), `nidan_http_requests_total{method="GET",status="404"} 1`) {
		t.Errorf("Expected request counter with status 404 in metrics output, but got:\n%s", body)
	}
}

// TestNewMetricsMiddleware_AllowsWebSocketUpgrade はミドルウェア配下でも
// WebSocketのアップグレードが成功することをテストします。
func TestNewMetricsMiddleware_AllowsWebSocketUpgrade(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	handler := NewMetricsMiddleware(metrics.NewCollector())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed through the metrics middleware: %v", err)
			return
		}
		conn.Close()
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Expected WebSocket handshake to succeed, but got %v (resp: %+v)", err, resp)
	}
	conn.Close()
}
