package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestClient(userID string) *Client {
	return &Client{
		UserID: userID,
		Send:   make(chan []byte, 16),
	}
}

// TestHub_NotifyUser は登録済みクライアントへの配信をテストします。
func TestHub_NotifyUser(t *testing.T) {
	hub := NewHub()
	client := newTestClient("user-1")
	hub.Register(client)

	hub.NotifyUser("user-1", "collections_updated")

	select {
	case message := <-client.Send:
		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if ev.Type != "collections_updated" {
			t.Errorf("Expected collections_updated, but got %q", ev.Type)
		}
	default:
		t.Fatal("Expected a message in the send channel")
	}
}

// TestHub_NotifyOtherUser は他ユーザーへ配信されないことをテストします。
func TestHub_NotifyOtherUser(t *testing.T) {
	hub := NewHub()
	client := newTestClient("user-1")
	hub.Register(client)

	hub.NotifyUser("user-2", "collections_updated")

	select {
	case <-client.Send:
		t.Error("user-1 should not receive user-2's event")
	default:
	}
}

// TestHub_MultipleClients は同一ユーザーの複数接続への配信をテストします。
func TestHub_MultipleClients(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient("user-1")
	client2 := newTestClient("user-1")
	hub.Register(client1)
	hub.Register(client2)

	hub.NotifyUser("user-1", "analytics_updated")

	for i, client := range []*Client{client1, client2} {
		select {
		case <-client.Send:
		default:
			t.Errorf("Client %d did not receive the event", i+1)
		}
	}
}

// TestHub_Unregister は登録解除後に配信されないことをテストします。
func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient("user-1")
	hub.Register(client)
	hub.Unregister(client)

	// 閉じられたクライアントへは SafeSend が false を返すだけでパニックしない
	hub.NotifyUser("user-1", "collections_updated")

	if client.SafeSend([]byte("x")) {
		t.Error("Expected SafeSend to fail on a closed client")
	}
}

// TestClient_SafeSend_FullBuffer はバッファ満杯時にブロックしないことをテストします。
func TestClient_SafeSend_FullBuffer(t *testing.T) {
	client := &Client{UserID: "user-1", Send: make(chan []byte, 1)}

	if !client.SafeSend([]byte("first")) {
		t.Error("Expected first send to succeed")
	}
	if client.SafeSend([]byte("second")) {
		t.Error("Expected second send to fail when the buffer is full")
	}
}

// TestClient_SafeClose_Idempotent は二重クローズが安全なことをテストします。
func TestClient_SafeClose_Idempotent(t *testing.T) {
	client := newTestClient("user-1")
	client.SafeClose()
	client.SafeClose() // 2回呼んでもパニックしない
}

// TestClientPumps_DeliverEvents は実際のWebSocket接続を通じて、
// ポンプ経由でイベントがクライアントへ届くことをテストします。
func TestClientPumps_DeliverEvents(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		client := &Client{UserID: "user-1", Conn: conn, Send: make(chan []byte, 16)}
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump(hub)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// サーバー側の登録完了を待つ
	for i := 0; i < 100; i++ {
		hub.mu.RLock()
		registered := len(hub.clients["user-1"]) > 0
		hub.mu.RUnlock()
		if registered {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.NotifyUser("user-1", "collections_updated")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if ev.Type != "collections_updated" {
		t.Errorf("Expected collections_updated, but got %q", ev.Type)
	}
}
