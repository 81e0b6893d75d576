package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// HabitHandler serves the habit CRUD surface. Every route is behind
// RequireAuth, so the userID is always present in the context.
type HabitHandler struct {
	habits *service.HabitService
}

func NewHabitHandler(habits *service.HabitService) *HabitHandler {
	return &HabitHandler{habits: habits}
}

// HandleCreate creates a habit (and its streak record).
//
// HTTP: POST /api/habits
func (h *HabitHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.CreateHabitInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	habit, err := h.habits.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// HandleList returns the user's habits, highest priority first. An optional
// ?category= filter narrows the list.
//
// HTTP: GET /api/habits[?category=fitness]
func (h *HabitHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if category := r.URL.Query().Get("category"); category != "" {
		habits, err := h.habits.ListByCategory(r.Context(), userID, category)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, habits)
		return
	}

	habits, err := h.habits.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// HandleGet returns one habit.
//
// HTTP: GET /api/habits/{id}
func (h *HabitHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	habit, err := h.habits.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/habits/{id}
func (h *HabitHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.UpdateHabitInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	habit, err := h.habits.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// HandleDelete removes a habit and everything hanging off it.
//
// HTTP: DELETE /api/habits/{id}
func (h *HabitHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.habits.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "habit deleted"})
}

// HandleCategories returns the known category names for client pickers.
//
// HTTP: GET /api/habits/meta/categories
func (h *HabitHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.habits.Categories())
}
