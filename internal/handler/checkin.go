package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// dateParam is the wire format for date query parameters.
const dateParam = "2006-01-02"

// CheckInHandler serves the check-in endpoints. The POST route is the hot
// path of the whole app — everything else here is reads and maintenance.
type CheckInHandler struct {
	checkIns *service.CheckInService
}

func NewCheckInHandler(checkIns *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkIns: checkIns}
}

// HandleCreate records today's check-in for a habit.
//
// HTTP: POST /api/checkins
// Body: {"habitId": "...", "count": 2, "note": "morning run"}
// → 201 {"checkIn": {...}, "points": 30, "userLevel": 2, "userPoints": 140}
func (h *CheckInHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in struct {
		HabitID string `json:"habitId"`
		Count   int    `json:"count"`
		Note    string `json:"note"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.HabitID == "" {
		writeError(w, apperror.ValidationFailed("habitId", "habitId is required"))
		return
	}

	result, err := h.checkIns.RecordCheckIn(r.Context(), userID, in.HabitID, in.Count, in.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListByHabit returns one habit's check-ins, newest first.
//
// HTTP: GET /api/checkins/habit/{habitID}
func (h *CheckInHandler) HandleListByHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	checkIns, err := h.checkIns.GetByHabit(r.Context(), userID, chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkIns)
}

// HandleToday returns the user's check-ins for the current day.
//
// HTTP: GET /api/checkins/today
func (h *CheckInHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	checkIns, err := h.checkIns.GetToday(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkIns)
}

// HandleRange returns check-ins between two dates, inclusive.
//
// HTTP: GET /api/checkins/range?startDate=2026-08-01&endDate=2026-08-31
func (h *CheckInHandler) HandleRange(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	from, err := time.ParseInLocation(dateParam, r.URL.Query().Get("startDate"), time.Local)
	if err != nil {
		writeError(w, apperror.ValidationFailed("startDate", "startDate must be YYYY-MM-DD"))
		return
	}
	to, err := time.ParseInLocation(dateParam, r.URL.Query().Get("endDate"), time.Local)
	if err != nil {
		writeError(w, apperror.ValidationFailed("endDate", "endDate must be YYYY-MM-DD"))
		return
	}

	checkIns, err := h.checkIns.GetRange(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkIns)
}

// HandleUpdate edits an existing check-in's completed/count/note fields.
// Streaks and points are not recomputed retroactively.
//
// HTTP: PUT /api/checkins/{id}
func (h *CheckInHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in struct {
		Completed *bool   `json:"completed"`
		Count     *int    `json:"count"`
		Note      *string `json:"note"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	checkIn, err := h.checkIns.UpdateNote(r.Context(), userID, chi.URLParam(r, "id"), in.Completed, in.Count, in.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkIn)
}

// HandleDelete removes a check-in.
//
// HTTP: DELETE /api/checkins/{id}
func (h *CheckInHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.checkIns.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "check-in deleted"})
}
