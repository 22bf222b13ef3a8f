package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// StateProvider defines the read side the state API needs
type StateProvider interface {
	Courses(ctx context.Context) []models.Course
	ActiveRounds() []round.ActiveRound
	Presence(ctx context.Context, course string) round.Presence
	Scorecard(ctx context.Context, course string) (*round.Scorecard, error)
	ListArchive(ctx context.Context) ([]models.ArchivedRound, error)
}

// StateHandler serves read-only course and history state over HTTP
type StateHandler struct {
	state StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(state StateProvider) *StateHandler {
	return &StateHandler{state: state}
}

// HandleCourses lists the course catalog
// GET /api/courses
func (h *StateHandler) HandleCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Courses(r.Context()))
}

// HandleActiveRounds lists the live rounds held in memory
// GET /api/courses/active
func (h *StateHandler) HandleActiveRounds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.ActiveRounds())
}

// HandlePresence returns the live players of a course
// GET /api/courses/{course}/presence
func (h *StateHandler) HandlePresence(w http.ResponseWriter, r *http.Request) {
	course := mux.Vars(r)["course"]
	writeJSON(w, http.StatusOK, h.state.Presence(r.Context(), course))
}

// HandleScorecard returns the holes of a course with the scores of its round in progress
// GET /api/courses/{course}/scorecard
func (h *StateHandler) HandleScorecard(w http.ResponseWriter, r *http.Request) {
	course := mux.Vars(r)["course"]

	card, err := h.state.Scorecard(r.Context(), course)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandleHistory lists archived rounds, oldest first
// GET /api/history
func (h *StateHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	archives, err := h.state.ListArchive(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}

	summaries := make([]round.ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		summaries = append(summaries, round.NewArchiveSummary(a))
	}
	writeJSON(w, http.StatusOK, summaries)
}

type errorResponse struct {
	Error string     `json:"error"`
	Kind  round.Kind `json:"kind,omitempty"`
}

func writeAppError(w http.ResponseWriter, err error) {
	kind := round.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case round.KindValidation:
		status = http.StatusBadRequest
	case round.KindNotFound:
		status = http.StatusNotFound
	case round.KindPermission:
		status = http.StatusForbidden
	case round.KindUnauthenticated:
		status = http.StatusUnauthorized
	case round.KindPersistence:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("state request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
