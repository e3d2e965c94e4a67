package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/posematch/internal/app"
	"github.com/ayusman/posematch/internal/recorder"
	"github.com/ayusman/posematch/internal/skeleton"
	"github.com/ayusman/posematch/internal/store"
)

// Controller runs sessions. *app.App implements it.
type Controller interface {
	Status() app.Status
	StartRecording(name string) error
	StartPlayback(routineID string) error
	StartChecking(bone skeleton.JointType) error
	StopSession() (*app.StopResult, error)
}

// SessionHandler serves /api/session and its control endpoints.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler driving ctrl.
func NewSessionHandler(ctrl Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

// ServeHTTP routes GET /api/session and POST /api/session/{record,play,check,stop}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/session"), "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Status())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "record":
		h.record(w, r)
	case "play":
		h.play(w, r)
	case "check":
		h.check(w, r)
	case "stop":
		h.stop(w, r)
	default:
		http.NotFound(w, r)
	}
}

type recordRequest struct {
	Name string `json:"name"`
}

type playRequest struct {
	RoutineID string `json:"routine_id"`
}

type checkRequest struct {
	Bone string `json:"bone"`
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// record handles POST /api/session/record.
func (h *SessionHandler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.ctrl.StartRecording(strings.TrimSpace(req.Name)); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Status())
}

// play handles POST /api/session/play. Without a routine id the last
// routine is played.
func (h *SessionHandler) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.ctrl.StartPlayback(req.RoutineID); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Status())
}

// check handles POST /api/session/check.
func (h *SessionHandler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	bone := app.DefaultCheckBone
	if req.Bone != "" {
		j, ok := skeleton.ParseJoint(req.Bone)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown bone "+req.Bone)
			return
		}
		bone = j
	}

	if err := h.ctrl.StartChecking(bone); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Status())
}

// stop handles POST /api/session/stop.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctrl.StopSession()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := map[string]any{"mode": res.Mode}
	if res.Routine != nil {
		resp["routine"] = toRoutineResponse(res.Routine)
	}
	if res.Session != nil {
		resp["session"] = toSessionResponse(res.Session)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeSessionError maps controller errors to status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNoRoutine), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrBusy), errors.Is(err, app.ErrNotActive), errors.Is(err, app.ErrRoutineExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, recorder.ErrEmptyRecording):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Session failed")
	}
}
