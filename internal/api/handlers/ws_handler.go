package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// オリジンの検証はCORSミドルウェアに委ねる（WebSocketは別途トークンで認証）
		return true
	},
}

// WSHandler handles WebSocket connections for change notifications.
type WSHandler struct {
	hub       *realtime.Hub
	jwtSecret string
}

// NewWSHandler creates a new instance of WSHandler.
func NewWSHandler(hub *realtime.Hub, jwtSecret string) *WSHandler {
	return &WSHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// ServeWSHandler upgrades the connection and registers the client with the hub.
// GET /api/ws?token=<JWT>
//
// ブラウザのWebSocket APIはカスタムヘッダーを送れないため、
// JWTはクエリパラメータで受け取ります。
func (h *WSHandler) ServeWSHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		WriteErrorResponse(w, http.StatusUnauthorized, "トークンが指定されていません")
		return
	}

	userID, err := middleware.ParseUserIDFromToken(tokenString, h.jwtSecret)
	if err != nil {
		log.Printf("ServeWSHandler: トークンの検証に失敗しました: %v", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ServeWSHandler: WebSocketへのアップグレードに失敗しました: %v", err)
		return
	}

	client := &realtime.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
