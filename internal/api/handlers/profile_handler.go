package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/database"
)

// ProfileHandler handles HTTP requests related to user profiles.
type ProfileHandler struct {
	users database.UserRepository
}

// NewProfileHandler creates a new instance of ProfileHandler.
func NewProfileHandler(users database.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetProfileHandler returns the authenticated user's profile.
// GET /api/protected/profile
func (h *ProfileHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	profile, err := h.users.GetUser(userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "ユーザープロファイルが見つかりません")
			return
		}
		log.Printf("GetProfileHandler: %v", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "プロファイルの取得に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateProfileHandler updates the authenticated user's profile.
// PUT /api/protected/profile
func (h *ProfileHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}
	if req.DisplayName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "表示名を入力してください")
		return
	}

	patch := map[string]interface{}{"display_name": req.DisplayName}
	if err := h.users.UpdateUser(userID, patch); err != nil {
		log.Printf("UpdateProfileHandler: %v", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "プロファイルの更新に失敗しました")
		return
	}

	profile, err := h.users.GetUser(userID)
	if err != nil {
		log.Printf("UpdateProfileHandler: 更新後のプロファイル取得に失敗しました: %v", err)
		WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "プロファイルを更新しました"})
		return
	}
	WriteJSONResponse(w, http.StatusOK, profile)
}
