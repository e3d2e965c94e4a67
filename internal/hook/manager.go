package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks below a directory.
type Manager struct {
	dir   string
	hooks map[string]*Hook
	mu    sync.RWMutex
}

// NewManager creates a Manager for dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		hooks: make(map[string]*Hook),
	}
}

// Discover rescans the hook directory. Every subdirectory holding a hook.json
// manifest with a name and an executable becomes a hook; anything else is
// skipped. A missing directory means no hooks.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	info, err := os.Stat(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat hook dir: %w", err)
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("read hook dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, ManifestFile))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			log.Printf("Skipping hook %s: invalid manifest: %v", entry.Name(), err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			log.Printf("Skipping hook %s: manifest needs name and executable", entry.Name())
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       path,
			Executable: filepath.Join(path, manifest.Executable),
		}
	}

	return nil
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// Subscribers returns the hooks subscribed to event, sorted by name.
func (m *Manager) Subscribers(event string) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Subscribes(event) {
			out = append(out, h)
		}
	}
	return out
}

// Dir returns the hook directory.
func (m *Manager) Dir() string {
	return m.dir
}
