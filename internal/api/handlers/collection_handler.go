package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/collections"
)

// CollectionHandler handles HTTP requests for the collection/code lifecycle.
type CollectionHandler struct {
	manager *collections.Manager
	metrics *metrics.Collector
}

// NewCollectionHandler creates a new instance of CollectionHandler.
func NewCollectionHandler(manager *collections.Manager, collector *metrics.Collector) *CollectionHandler {
	return &CollectionHandler{
		manager: manager,
		metrics: collector,
	}
}

// writeLifecycleError はライフサイクルマネージャーのエラーをHTTPステータスと
// 日本語メッセージへ変換します。
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collections.ErrAuthRequired):
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
	case errors.Is(err, collections.ErrNameRequired):
		WriteErrorResponse(w, http.StatusBadRequest, "コレクション名を入力してください")
	case errors.Is(err, collections.ErrCollectionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "コレクションが見つかりません")
	case errors.Is(err, collections.ErrCodeNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "コードが見つかりません")
	case errors.Is(err, collections.ErrAlreadyUsed):
		WriteErrorResponse(w, http.StatusConflict, "このコードは既に使用されています")
	default:
		log.Printf("CollectionHandler: %v", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "操作に失敗しました")
	}
}

// ListCollectionsHandler returns the user's grouped collections and current selection.
// GET /api/protected/collections
func (h *CollectionHandler) ListCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	cols, err := h.manager.Collections(userID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"collections": cols,
		"selected":    h.manager.Selected(userID),
	})
}

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCollectionHandler creates a new empty collection.
// POST /api/protected/collections
func (h *CollectionHandler) CreateCollectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}

	col, err := h.manager.CreateCollection(userID, req.Name, req.Description)
	if err != nil {
		h.metrics.RecordOperation("create_collection", false)
		writeLifecycleError(w, err)
		return
	}

	h.metrics.RecordOperation("create_collection", true)
	WriteJSONResponse(w, http.StatusCreated, col)
}

// SelectCollectionHandler marks a collection as the current selection.
// POST /api/protected/collections/{collectionID}/select
func (h *CollectionHandler) SelectCollectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}
	collectionID := mux.Vars(r)["collectionID"]

	if err := h.manager.Select(userID, collectionID); err != nil {
		writeLifecycleError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"selected": collectionID})
}

// DeleteCollectionHandler removes a collection and cascades remote deletes.
// DELETE /api/protected/collections/{collectionID}
func (h *CollectionHandler) DeleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}
	collectionID := mux.Vars(r)["collectionID"]

	if err := h.manager.DeleteCollection(userID, collectionID); err != nil {
		if errors.Is(err, collections.ErrCollectionNotFound) || errors.Is(err, collections.ErrAuthRequired) {
			h.metrics.RecordOperation("delete_collection", false)
			writeLifecycleError(w, err)
			return
		}
		// ローカルでは削除済みだが、リモート削除が一部失敗している
		log.Printf("DeleteCollectionHandler: %v", err)
		h.metrics.RecordOperation("delete_collection", false)
		WriteJSONResponse(w, http.StatusOK, map[string]string{
			"message": "コレクションを削除しましたが、一部のコードのリモート削除に失敗しました",
		})
		return
	}

	h.metrics.RecordOperation("delete_collection", true)
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "コレクションを削除しました"})
}

type addCodesRequest struct {
	Codes string `json:"codes"` // 複数行テキスト（1行1コード）
	Label string `json:"label"`
}

// AddCodesHandler parses multiline text and adds one record per line.
// POST /api/protected/collections/{collectionID}/codes
func (h *CollectionHandler) AddCodesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}
	collectionID := mux.Vars(r)["collectionID"]

	var req addCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}

	created, failures, err := h.manager.AddCodes(userID, collectionID, req.Codes, req.Label)
	if err != nil {
		h.metrics.RecordOperation("add_codes", false)
		writeLifecycleError(w, err)
		return
	}

	h.metrics.RecordOperation("add_codes", len(failures) == 0)
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"added":    created,
		"failures": failures,
	})
}

// UseCodeHandler marks a code as used exactly once.
// POST /api/protected/collections/{collectionID}/codes/{codeID}/use
func (h *CollectionHandler) UseCodeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}
	vars := mux.Vars(r)

	used, err := h.manager.UseCode(userID, vars["collectionID"], vars["codeID"])
	if err != nil {
		h.metrics.RecordOperation("use_code", false)
		writeLifecycleError(w, err)
		return
	}

	h.metrics.RecordOperation("use_code", true)
	WriteJSONResponse(w, http.StatusOK, used)
}

// DeleteUsedCodesHandler bulk-deletes the used codes in a collection.
// DELETE /api/protected/collections/{collectionID}/codes/used
func (h *CollectionHandler) DeleteUsedCodesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}
	collectionID := mux.Vars(r)["collectionID"]

	removed, failures, err := h.manager.DeleteUsedCodes(userID, collectionID)
	if err != nil {
		h.metrics.RecordOperation("delete_used_codes", false)
		writeLifecycleError(w, err)
		return
	}

	h.metrics.RecordOperation("delete_used_codes", len(failures) == 0)
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"removed":  removed,
		"failures": failures,
	})
}
