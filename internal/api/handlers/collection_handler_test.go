package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/collections"
)

// stubCodeRepo はテスト用のインメモリ CodeRepository 実装です。
type stubCodeRepo struct {
	records map[string]*models.CodeRecord
	seq     int
}

func newStubCodeRepo() *stubCodeRepo {
	return &stubCodeRepo{records: map[string]*models.CodeRecord{}}
}

func (r *stubCodeRepo) CreateCode(params models.CodeCreateParams) (*models.CodeRecord, error) {
	r.seq++
	rec := &models.CodeRecord{
		ID:                    fmt.Sprintf("rec-%d", r.seq),
		UserID:                params.UserID,
		Code:                  params.Code,
		Description:           params.Description,
		CollectionName:        params.CollectionName,
		CollectionDescription: params.CollectionDescription,
		CreatedAt:             time.Now().UTC(),
	}
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *stubCodeRepo) GetUserCodes(userID string) []models.CodeRecord {
	out := []models.CodeRecord{}
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out
}

func (r *stubCodeRepo) GetCode(id string) (*models.CodeRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	copied := *rec
	return &copied, nil
}

func (r *stubCodeRepo) UpdateCode(id string, patch map[string]interface{}) error { return nil }

func (r *stubCodeRepo) MarkCodeAsUsed(id string) error {
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	rec.IsUsed = true
	return nil
}

func (r *stubCodeRepo) DeleteCode(id string) error {
	delete(r.records, id)
	return nil
}

func newTestRouter(manager *collections.Manager) *mux.Router {
	h := NewCollectionHandler(manager, metrics.NewCollector())
	r := mux.NewRouter()
	r.HandleFunc("/collections", h.ListCollectionsHandler).Methods("GET")
	r.HandleFunc("/collections", h.CreateCollectionHandler).Methods("POST")
	r.HandleFunc("/collections/{collectionID}/codes", h.AddCodesHandler).Methods("POST")
	r.HandleFunc("/collections/{collectionID}/codes/{codeID}/use", h.UseCodeHandler).Methods("POST")
	return r
}

// doRequest は認証済みユーザーとしてリクエストを実行します。
func doRequest(router *mux.Router, method, path, body, userID string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey{}, userID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestCollectionHandler_Unauthorized は未認証リクエストの拒否をテストします。
func TestCollectionHandler_Unauthorized(t *testing.T) {
	router := newTestRouter(collections.NewManager(newStubCodeRepo(), nil, nil))

	rec := doRequest(router, "GET", "/collections", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without user context, but got %d", rec.Code)
	}
}

// TestCollectionHandler_CreateAndList はコレクション作成と一覧取得をテストします。
func TestCollectionHandler_CreateAndList(t *testing.T) {
	router := newTestRouter(collections.NewManager(newStubCodeRepo(), nil, nil))

	rec := doRequest(router, "POST", "/collections", `{"name":"GitHub","description":"個人用"}`, "user-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, but got %d: %s", rec.Code, rec.Body.String())
	}

	// 空の名前は400
	rec = doRequest(router, "POST", "/collections", `{"name":"  "}`, "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank name, but got %d", rec.Code)
	}

	rec = doRequest(router, "GET", "/collections", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var resp struct {
		Collections []models.Collection `json:"collections"`
		Selected    string              `json:"selected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Collections) != 1 || resp.Collections[0].Name != "GitHub" {
		t.Errorf("Expected 1 collection named GitHub, but got %+v", resp.Collections)
	}
}

// TestCollectionHandler_UseCodeFlow はコード追加から使用までの流れをテストします。
func TestCollectionHandler_UseCodeFlow(t *testing.T) {
	manager := collections.NewManager(newStubCodeRepo(), nil, nil)
	router := newTestRouter(manager)

	col, err := manager.CreateCollection("user-1", "GitHub", "")
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	rec := doRequest(router, "POST", "/collections/"+col.ID+"/codes", `{"codes":"111111\n222222","label":"Backup"}`, "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	var added struct {
		Added    []models.LocalCode         `json:"added"`
		Failures []models.CodeInsertFailure `json:"failures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(added.Added) != 2 || len(added.Failures) != 0 {
		t.Fatalf("Expected 2 added codes, but got %+v", added)
	}

	usePath := "/collections/" + col.ID + "/codes/" + added.Added[0].ID + "/use"
	rec = doRequest(router, "POST", usePath, "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for first use, but got %d: %s", rec.Code, rec.Body.String())
	}

	// 2回目の使用は409
	rec = doRequest(router, "POST", usePath, "", "user-1")
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for second use, but got %d", rec.Code)
	}

	// 存在しないコレクションは404
	rec = doRequest(router, "POST", "/collections/missing/codes/x/use", "", "user-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown collection, but got %d", rec.Code)
	}
}
