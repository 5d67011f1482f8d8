package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ParseUserIDFromToken はSupabaseのJWTを検証し、subクレームのユーザーIDを返します。
// WebSocketハンドラーなど、ミドルウェアを通らない経路からも利用します。
func ParseUserIDFromToken(tokenString, jwtSecret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("JWTの検証に失敗しました: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("無効なトークンです")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("トークンのクレームを取得できません")
	}

	// SupabaseのJWTは通常、ユーザーIDを 'sub' (Subject) クレームにUUIDとして格納します。
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("トークンに 'sub' (userID) クレームがありません")
	}
	return userID, nil
}

// NewAuthMiddleware は有効なJWTトークンを検証するミドルウェアを返します。
// 検証に成功した場合、ユーザーIDをContextに設定して次のハンドラへ渡します。
func NewAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if jwtSecret == "" {
				log.Println("Error: SUPABASE_JWT_SECRET environment variable is not set.")
				writeJSONError(w, http.StatusInternalServerError, "Server configuration error: JWT secret missing")
				return
			}

			// authorizationヘッダーからJWTを取得
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := ParseUserIDFromToken(tokenString, jwtSecret)
			if err != nil {
				log.Printf("AuthMiddleware Error: %v", err)
				writeJSONError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			// ユーザーIDをContextに設定して次のハンドラに渡す
			ctx := context.WithValue(r.Context(), UserIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
