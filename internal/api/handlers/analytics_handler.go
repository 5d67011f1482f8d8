package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/analytics"
)

// defaultRecentDays は recent エンドポイントのデフォルトの遡り日数です。
const defaultRecentDays = 7

// AnalyticsHandler handles HTTP requests for usage analytics.
// 集計はすべて純粋関数で行い、レコード取得の失敗は空集合（全ゼロの統計）として
// 扱うため、このハンドラーがエラーを返すのは認証切れのときだけです。
type AnalyticsHandler struct {
	codes database.CodeRepository
}

// NewAnalyticsHandler creates a new instance of AnalyticsHandler.
func NewAnalyticsHandler(codes database.CodeRepository) *AnalyticsHandler {
	return &AnalyticsHandler{codes: codes}
}

// yearParam は ?year= を読み取ります。欠落・不正な場合は現在の年を返します。
func yearParam(r *http.Request) int {
	if v := r.URL.Query().Get("year"); v != "" {
		if year, err := strconv.Atoi(v); err == nil && year > 0 {
			return year
		}
	}
	return time.Now().UTC().Year()
}

// GetStatsHandler returns the current-year usage statistics.
// GET /api/protected/analytics/stats
func (h *AnalyticsHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	records := h.codes.GetUserCodes(userID)
	WriteJSONResponse(w, http.StatusOK, analytics.CurrentYearStats(records, time.Now()))
}

// GetMonthlyHandler returns the 12 monthly buckets for a year.
// GET /api/protected/analytics/monthly?year=YYYY
func (h *AnalyticsHandler) GetMonthlyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	year := yearParam(r)
	records := h.codes.GetUserCodes(userID)
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"year":    year,
		"monthly": analytics.MonthlyUsage(records, year),
	})
}

// GetContributionsHandler returns the per-day intensity calendar for a year.
// GET /api/protected/analytics/contributions?year=YYYY
func (h *AnalyticsHandler) GetContributionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	year := yearParam(r)
	records := h.codes.GetUserCodes(userID)
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"year":          year,
		"contributions": analytics.ContributionData(records, year),
	})
}

// GetRecentHandler returns records created within the last N days, newest first.
// GET /api/protected/analytics/recent?days=N
func (h *AnalyticsHandler) GetRecentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := ExtractUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "ログインが必要です")
		return
	}

	days := defaultRecentDays
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	records := h.codes.GetUserCodes(userID)
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"recent": analytics.RecentActivity(records, time.Now(), days),
	})
}
