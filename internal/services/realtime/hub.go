// Package realtime はユーザー単位の変更イベントをWebSocketでプッシュするハブです。
// ライフサイクルマネージャーのミューテーション成功後に collections_updated /
// analytics_updated を配信し、クライアントは受信を契機に再取得します。
// 配信はベストエフォートで、届かなくても操作の成否には影響しません。
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// クライアントへの書き込みを諦めるまでの時間
	writeWait = 10 * time.Second
	// Pong の待ち時間。これを超えると接続を切ります。
	pongWait = 60 * time.Second
	// Ping の送信間隔。pongWait より短くすること。
	pingPeriod = 54 * time.Second
	// クライアントから受け付ける最大メッセージサイズ
	maxMessageSize = 512
)

// Event はクライアントへ送る通知メッセージです。
type Event struct {
	Type string `json:"type"`
}

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID string          // このクライアントに紐づくユーザーのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル

	closed bool       // チャネルが閉じられたかどうかのフラグ
	mu     sync.Mutex // closedフラグ保護用
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）。
// チャネルがフルの場合は送信せず false を返します。
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// SafeClose は安全にチャネルを閉じます。
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// Hub は接続中の全WebSocketクライアントをユーザーID単位で管理します。
// 同一ユーザーの複数タブ/デバイスからの同時接続を許容します。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> クライアント集合
}

// NewHub は新しい Hub を作成します。
func NewHub() *Hub {
	return &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
}

// Register はクライアントをハブに登録します。
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = map[*Client]struct{}{}
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	log.Printf("Hub: ユーザー %s のクライアントを登録しました（現在 %d 接続）", c.UserID, len(set))
}

// Unregister はクライアントをハブから外し、送信チャネルを閉じます。
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	c.SafeClose()
}

// NotifyUser は指定ユーザーの全接続へイベントを配信します。
// バッファが一杯のクライアントへの配信はスキップされます（ブロックしない）。
func (h *Hub) NotifyUser(userID, event string) {
	message, err := json.Marshal(Event{Type: event})
	if err != nil {
		log.Printf("Hub: イベントのエンコードに失敗しました: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		if !c.SafeSend(message) {
			log.Printf("Hub: ユーザー %s への配信をスキップしました（バッファフルまたは切断済み）", userID)
		}
	}
}

// WritePump は Send チャネルのメッセージをコネクションへ書き込み続けます。
// 接続ごとに1ゴルーチンで実行してください。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// ハブがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump はコネクションからの読み取りを続け、切断を検知したら登録解除します。
// このハブはクライアントからのメッセージを処理しません（受信は接続維持のためだけ）。
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
