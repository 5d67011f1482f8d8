package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-jwt-secret"

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// TestParseUserIDFromToken は有効なトークンからのユーザーID抽出をテストします。
func TestParseUserIDFromToken(t *testing.T) {
	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := ParseUserIDFromToken(tokenString, testSecret)
	if err != nil {
		t.Fatalf("ParseUserIDFromToken failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("Expected user-123, but got %q", userID)
	}
}

// TestParseUserIDFromToken_Invalid は不正なトークンの拒否をテストします。
func TestParseUserIDFromToken_Invalid(t *testing.T) {
	// 別のシークレットで署名されたトークン
	tokenString := signTestToken(t, "wrong-secret", jwt.MapClaims{"sub": "user-123"})
	if _, err := ParseUserIDFromToken(tokenString, testSecret); err == nil {
		t.Error("Expected error for token signed with wrong secret")
	}

	// subクレームがないトークン
	tokenString = signTestToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	if _, err := ParseUserIDFromToken(tokenString, testSecret); err == nil {
		t.Error("Expected error for token without sub claim")
	}

	if _, err := ParseUserIDFromToken("not-a-token", testSecret); err == nil {
		t.Error("Expected error for malformed token")
	}
}

// TestNewAuthMiddleware はミドルウェア経由の認証をテストします。
func TestNewAuthMiddleware(t *testing.T) {
	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Error("Expected user ID in context")
		}
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAuthMiddleware(testSecret)(next)

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/protected/collections", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, but got %d", rec.Code)
	}
	if gotUserID != "user-123" {
		t.Errorf("Expected user-123 in context, but got %q", gotUserID)
	}
}

// TestNewAuthMiddleware_Rejections は認証失敗時のレスポンスをテストします。
func TestNewAuthMiddleware_Rejections(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called")
	})
	handler := NewAuthMiddleware(testSecret)(next)

	// Authorizationヘッダーなし
	req := httptest.NewRequest("GET", "/api/protected/collections", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for missing header, but got %d", rec.Code)
	}

	// Bearer形式でないヘッダー
	req = httptest.NewRequest("GET", "/api/protected/collections", nil)
	req.Header.Set("Authorization", "Basic xxxx")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for non-Bearer header, but got %d", rec.Code)
	}

	// 期限切れトークン
	expired := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	req = httptest.NewRequest("GET", "/api/protected/collections", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired token, but got %d", rec.Code)
	}
}
