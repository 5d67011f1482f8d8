package handlers

import (
	"log"
	"net/http"
)

// PublicHandlerFunc はサービスの稼働確認用の公開エンドポイントです。
// GET /api/public
func PublicHandlerFunc(w http.ResponseWriter, r *http.Request) {
	log.Println("Request to public endpoint: /api/public")
	WriteJSONResponse(w, http.StatusOK, map[string]string{
		"service": "NIDAN backend",
		"status":  "ok",
	})
}
