// Package tray provides a system tray interface for posematch.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Action is a menu command.
type Action int

const (
	ActionRecord Action = iota
	ActionPlay
	ActionStop
	ActionSettings
	ActionQuit
)

// Tray represents the system tray application.
type Tray struct {
	handlers map[Action]func()
	active   bool
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuRecord *systray.MenuItem
	menuPlay   *systray.MenuItem
	menuStop   *systray.MenuItem
}

// New creates a new idle Tray.
func New() *Tray {
	return &Tray{
		handlers: make(map[Action]func()),
		status:   "Ready",
	}
}

// On sets the callback for a menu action.
func (t *Tray) On(action Action, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[action] = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("posematch")
	systray.SetTooltip("posematch pose scoring")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Current session")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuRecord = systray.AddMenuItem("Record", "Record a new routine")
	t.menuPlay = systray.AddMenuItem("Play last routine", "Score against the last routine")
	t.menuStop = systray.AddMenuItem("Stop", "Stop the current session")
	t.applyState()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit posematch")

	go func() {
		for {
			select {
			case <-t.menuRecord.ClickedCh:
				t.handle(ActionRecord)
			case <-t.menuPlay.ClickedCh:
				t.handle(ActionPlay)
			case <-t.menuStop.ClickedCh:
				t.handle(ActionStop)
			case <-menuSettings.ClickedCh:
				t.handle(ActionSettings)
			case <-menuQuit.ClickedCh:
				t.handle(ActionQuit)
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handle runs the callback for action outside the lock.
func (t *Tray) handle(action Action) {
	t.mu.RLock()
	callback := t.handlers[action]
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus updates the status line and whether a session is active.
// Record and Play are disabled while a session runs, Stop while idle.
func (t *Tray) SetStatus(line string, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := active != t.active
	t.status = line
	t.active = active

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(line)
	}
	if changed {
		t.applyState()
	}
}

// applyState must be called with t.mu held.
func (t *Tray) applyState() {
	if t.menuRecord == nil {
		return
	}
	setEnabled(t.menuRecord, !t.active)
	setEnabled(t.menuPlay, !t.active)
	setEnabled(t.menuStop, t.active)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// Status returns the last status line and active flag.
func (t *Tray) Status() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.active
}

// Quit stops Run.
func (t *Tray) Quit() {
	systray.Quit()
}
