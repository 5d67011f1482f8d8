package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/api/middleware"
)

// ExtractUserIDFromContext retrieves the user ID from the context.
func ExtractUserIDFromContext(ctx context.Context) (string, bool) {
	return middleware.GetUserIDFromContext(ctx)
}

// ExtractBearerToken はAuthorizationヘッダーからBearerトークンを取り出します。
// 形式が不正な場合は空文字を返します。
func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// WriteJSONResponse はpayloadをJSONとして書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("レスポンスのJSONエンコードに失敗しました: %v", err)
	}
}

// WriteErrorResponse はエラーメッセージをJSONとして書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}
