package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// AnalyticsHandler serves the derived reports. All data flows from the
// check-in records; nothing here mutates anything except the snapshot
// history, which the cron job writes.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// intQuery parses an optional integer query parameter; missing or empty
// yields 0 and nil.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// HandleCompletionRate returns the completion rate over a trailing window.
//
// HTTP: GET /api/analytics/completion/{habitID}?days=30
func (h *AnalyticsHandler) HandleCompletionRate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	days, err := intQuery(r, "days")
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.analytics.CompletionRate(r.Context(), userID, chi.URLParam(r, "habitID"), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleWeekly returns the last-7-days breakdown, always exactly 7 entries.
//
// HTTP: GET /api/analytics/weekly/{habitID}
func (h *AnalyticsHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	week, err := h.analytics.WeeklyBreakdown(r.Context(), userID, chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// HandleMonthly returns one calendar month's breakdown.
//
// HTTP: GET /api/analytics/monthly/{habitID}?month=8&year=2026
func (h *AnalyticsHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	month, err := intQuery(r, "month")
	if err != nil {
		writeError(w, err)
		return
	}
	year, err := intQuery(r, "year")
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.analytics.MonthlyBreakdown(r.Context(), userID, chi.URLParam(r, "habitID"), month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleDashboard returns one summary row per active habit.
//
// HTTP: GET /api/analytics/dashboard/summary
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	summaries, err := h.analytics.DashboardSummary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleInsights returns the best/worst habit ranking.
//
// HTTP: GET /api/analytics/insights/performance
func (h *AnalyticsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	insights, err := h.analytics.PerformanceInsights(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// HandleHistory returns stored daily snapshots for one habit, newest first.
//
// HTTP: GET /api/analytics/history/{habitID}?limit=30
func (h *AnalyticsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	snaps, err := h.analytics.History(r.Context(), userID, chi.URLParam(r, "habitID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}
