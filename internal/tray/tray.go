// Package tray provides the system tray menu for airsketch.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Action identifies a tray menu command.
type Action int

const (
	ActionUndo Action = iota
	ActionRedo
	ActionClear
	ActionSave
	ActionOpenCanvas
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onAction func(Action)
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when detection is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnAction sets the callback for the edit and file menu items.
func (t *Tray) OnAction(fn func(Action)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAction = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("AirSketch")
	systray.SetTooltip("AirSketch gesture drawing")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem("● Tracking", "Toggle hand tracking")
	t.menuStatus = systray.AddMenuItem("Gesture: idle", "Current gesture")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuUndo := systray.AddMenuItem("Undo", "Remove the last segment")
	menuRedo := systray.AddMenuItem("Redo", "Restore the last undone segment")
	menuClear := systray.AddMenuItem("Clear", "Clear the canvas")
	systray.AddSeparator()

	menuSave := systray.AddMenuItem("Save Drawing", "Save the canvas as PNG")
	menuOpen := systray.AddMenuItem("Open Canvas...", "Open the canvas in the browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AirSketch")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuUndo.ClickedCh:
				t.handleAction(ActionUndo)
			case <-menuRedo.ClickedCh:
				t.handleAction(ActionRedo)
			case <-menuClear.ClickedCh:
				t.handleAction(ActionClear)
			case <-menuSave.ClickedCh:
				t.handleAction(ActionSave)
			case <-menuOpen.ClickedCh:
				t.handleAction(ActionOpenCanvas)
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		if enabled {
			t.menuToggle.SetTitle("● Tracking")
		} else {
			t.menuToggle.SetTitle("○ Paused")
		}
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleAction(a Action) {
	t.mu.RLock()
	callback := t.onAction
	t.mu.RUnlock()

	if callback != nil {
		callback(a)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus shows the current gesture in the menu.
func (t *Tray) SetStatus(intent string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle("Gesture: " + intent)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
