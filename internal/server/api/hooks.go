package api

import (
	"net/http"

	"github.com/ayusman/posematch/internal/hook"
)

// HookHandler lists the discovered session hooks.
type HookHandler struct {
	hooks *hook.Manager
}

// NewHookHandler creates a new HookHandler for m.
func NewHookHandler(m *hook.Manager) *HookHandler {
	return &HookHandler{hooks: m}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

// ServeHTTP handles GET /api/hooks. POST rescans the hook directory first.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := h.hooks.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to scan hooks")
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := listHooksResponse{Hooks: []hookResponse{}}
	for _, hk := range h.hooks.List() {
		events := hk.Manifest.Events
		if events == nil {
			events = []string{}
		}
		response.Hooks = append(response.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Events:      events,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
