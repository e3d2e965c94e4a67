package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/posematch/internal/store"
)

// RoutineHandler serves recorded routines and their sessions.
type RoutineHandler struct {
	store *store.Store
}

// NewRoutineHandler creates a new RoutineHandler with the given store.
func NewRoutineHandler(s *store.Store) *RoutineHandler {
	return &RoutineHandler{store: s}
}

// ServeHTTP routes /api/routines, /api/routines/{id} and
// /api/routines/{id}/sessions.
func (h *RoutineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/routines")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "sessions":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.sessions(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type routineResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FrameCount int     `json:"frame_count"`
	DurationMs float64 `json:"duration_ms"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type listRoutinesResponse struct {
	Routines []routineResponse `json:"routines"`
}

type sessionResponse struct {
	ID           string  `json:"id"`
	RoutineID    string  `json:"routine_id"`
	UseWeights   bool    `json:"use_weights"`
	Score        int     `json:"score"`
	MaxScore     int     `json:"max_score"`
	Percent      float64 `json:"percent"`
	Frames       int     `json:"frames"`
	Matched      int     `json:"matched"`
	MeanDistance float64 `json:"mean_distance"`
	StartedAt    string  `json:"started_at"`
	EndedAt      string  `json:"ended_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toRoutineResponse(rt *store.Routine) routineResponse {
	return routineResponse{
		ID:         rt.ID,
		Name:       rt.Name,
		FrameCount: rt.FrameCount,
		DurationMs: rt.DurationMs,
		CreatedAt:  formatTime(rt.CreatedAt),
		UpdatedAt:  formatTime(rt.UpdatedAt),
	}
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:           s.ID,
		RoutineID:    s.RoutineID,
		UseWeights:   s.UseWeights,
		Score:        s.Score,
		MaxScore:     s.MaxScore,
		Frames:       s.Frames,
		Matched:      s.Matched,
		MeanDistance: s.MeanDistance,
		StartedAt:    formatTime(s.StartedAt),
		EndedAt:      formatTime(s.EndedAt),
	}
	if s.MaxScore > 0 {
		resp.Percent = 100 * float64(s.Score) / float64(s.MaxScore)
	}
	return resp
}

// list handles GET /api/routines.
func (h *RoutineHandler) list(w http.ResponseWriter, r *http.Request) {
	routines, err := h.store.Routines().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list routines")
		return
	}

	response := listRoutinesResponse{
		Routines: make([]routineResponse, 0, len(routines)),
	}
	for _, rt := range routines {
		response.Routines = append(response.Routines, toRoutineResponse(rt))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/routines/{id}.
func (h *RoutineHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rt, err := h.store.Routines().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Routine not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get routine")
		return
	}

	writeJSON(w, http.StatusOK, toRoutineResponse(rt))
}

// delete handles DELETE /api/routines/{id}. Sessions go with the routine.
func (h *RoutineHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Routines().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Routine not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete routine")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessions handles GET /api/routines/{id}/sessions.
func (h *RoutineHandler) sessions(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Routines().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Routine not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get routine")
		return
	}

	sessions, err := h.store.Sessions().ListByRoutine(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}
