// Package hook runs external programs when posematch sessions finish.
package hook

import "github.com/ayusman/posematch/internal/store"

// Events a hook can subscribe to.
const (
	EventSessionFinished = "session.finished"
)

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Request is written to a hook's stdin.
type Request struct {
	Event   string         `json:"event"`
	Routine *store.Routine `json:"routine,omitempty"`
	Session *store.Session `json:"session,omitempty"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribes reports whether the hook wants event.
func (h *Hook) Subscribes(event string) bool {
	for _, e := range h.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
