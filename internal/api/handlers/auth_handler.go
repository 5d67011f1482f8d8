package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/auth"
)

// AuthHandler handles HTTP requests related to authentication.
type AuthHandler struct {
	authService *auth.Service
	metrics     *metrics.Collector
}

// NewAuthHandler creates a new instance of AuthHandler.
func NewAuthHandler(authService *auth.Service, collector *metrics.Collector) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     collector,
	}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpHandler creates a new auth identity and user profile, then returns a session.
// POST /api/auth/signup
func (h *AuthHandler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "メールアドレスとパスワードは必須です")
		return
	}

	session, err := h.authService.SignUp(req.Email, req.Password, req.DisplayName)
	if err != nil {
		log.Printf("SignUpHandler: %v", err)
		h.metrics.RecordOperation("signup", false)
		WriteErrorResponse(w, http.StatusBadRequest, auth.MapAuthErrorMessage(err))
		return
	}

	h.metrics.RecordOperation("signup", true)
	WriteJSONResponse(w, http.StatusCreated, session)
}

// SignInHandler signs in with email and password and returns a session.
// POST /api/auth/signin
func (h *AuthHandler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "メールアドレスとパスワードは必須です")
		return
	}

	session, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		log.Printf("SignInHandler: %v", err)
		h.metrics.RecordOperation("signin", false)
		WriteErrorResponse(w, http.StatusUnauthorized, auth.MapAuthErrorMessage(err))
		return
	}

	h.metrics.RecordOperation("signin", true)
	WriteJSONResponse(w, http.StatusOK, session)
}

// CurrentUserHandler returns the profile bound to the current session's token.
// GET /api/protected/auth/me
func (h *AuthHandler) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	accessToken := ExtractBearerToken(r)
	if accessToken == "" {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	profile, err := h.authService.CurrentUser(accessToken)
	if err != nil {
		log.Printf("CurrentUserHandler: %v", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "セッションが無効です")
		return
	}

	WriteJSONResponse(w, http.StatusOK, profile)
}

// SignOutHandler destroys the current session.
// POST /api/protected/auth/signout
func (h *AuthHandler) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	accessToken := ExtractBearerToken(r)
	if err := h.authService.SignOut(accessToken, userID); err != nil {
		log.Printf("SignOutHandler: %v", err)
		h.metrics.RecordOperation("signout", false)
		WriteErrorResponse(w, http.StatusInternalServerError, "サインアウトに失敗しました")
		return
	}

	h.metrics.RecordOperation("signout", true)
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "サインアウトしました"})
}
