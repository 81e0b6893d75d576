package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// ChallengeHandler serves the shared-challenge endpoints.
type ChallengeHandler struct {
	challenges *service.ChallengeService
}

func NewChallengeHandler(challenges *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// HandleCreate starts a challenge with the caller as first participant.
//
// HTTP: POST /api/challenges
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.CreateChallengeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	challenge, err := h.challenges.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

// HandleListActive returns every active challenge.
//
// HTTP: GET /api/challenges
func (h *ChallengeHandler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challenges.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

// HandleListMine returns the challenges the caller has joined.
//
// HTTP: GET /api/challenges/my-challenges
func (h *ChallengeHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	challenges, err := h.challenges.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

// HandleGet returns one challenge with its participants.
//
// HTTP: GET /api/challenges/{id}
func (h *ChallengeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.challenges.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// HandleJoin adds the caller to a challenge.
//
// HTTP: POST /api/challenges/{id}/join
func (h *ChallengeHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	challenge, err := h.challenges.Join(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// HandleUpdateScores recomputes participant scores. Creator only.
//
// HTTP: POST /api/challenges/{id}/update-scores
func (h *ChallengeHandler) HandleUpdateScores(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	challenge, err := h.challenges.UpdateScores(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// HandleLeaderboard returns the ranked participant list.
//
// HTTP: GET /api/challenges/{id}/leaderboard
func (h *ChallengeHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.challenges.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleEnd deactivates a challenge. Creator only.
//
// HTTP: POST /api/challenges/{id}/end
func (h *ChallengeHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.challenges.End(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "challenge ended"})
}
