package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// StreakHandler serves the read-only streak views.
type StreakHandler struct {
	streaks *service.StreakService
}

func NewStreakHandler(streaks *service.StreakService) *StreakHandler {
	return &StreakHandler{streaks: streaks}
}

// HandleList returns all of the user's streaks, highest current first.
//
// HTTP: GET /api/streaks
func (h *StreakHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	streaks, err := h.streaks.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streaks)
}

// HandleGet returns the streak for one habit.
//
// HTTP: GET /api/streaks/{habitID}
func (h *StreakHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	streak, err := h.streaks.Get(r.Context(), userID, chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// HandleLeaderboard ranks the user's habits by longest streak, top 10.
//
// HTTP: GET /api/streaks/leaderboard/longest
func (h *StreakHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	leaders, err := h.streaks.Leaderboard(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaders)
}

// HandleActive returns only running streaks (current > 0).
//
// HTTP: GET /api/streaks/active/current
func (h *StreakHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	streaks, err := h.streaks.Active(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streaks)
}

// HandleSummary returns the aggregate stats block.
//
// HTTP: GET /api/streaks/stats/summary
func (h *StreakHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	summary, err := h.streaks.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
