// Package tray provides the system tray menu for moodcam.
package tray

import (
	"log"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/moodcam/internal/app"
	"github.com/ayusman/moodcam/internal/gesture"
)

// Controller is the part of the application the tray drives.
type Controller interface {
	StartSession() error
	StopSession() (app.Summary, error)
	StartGame()
	EndGame()
	IsRunning() bool
	GameActive() bool
}

// Tray represents the system tray application.
type Tray struct {
	ctrl            Controller
	onOpenDashboard func()
	onQuit          func()
	mu              sync.RWMutex

	// Menu items stored for later updates
	menuStartCamera *systray.MenuItem
	menuStopCamera  *systray.MenuItem
	menuStartGame   *systray.MenuItem
	menuEndGame     *systray.MenuItem
	menuEmotion     *systray.MenuItem
	menuGesture     *systray.MenuItem
}

// New creates a new Tray driving ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{ctrl: ctrl}
}

// OnOpenDashboard sets the callback for the Open Dashboard menu item.
func (t *Tray) OnOpenDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Moodcam")
	systray.SetTooltip("Moodcam emotion and gesture camera")

	t.mu.Lock()
	t.menuStartCamera = systray.AddMenuItem("Start Camera", "Open the camera and start analysis")
	t.menuStopCamera = systray.AddMenuItem("Stop Camera", "Stop analysis and save the session")
	systray.AddSeparator()

	t.menuStartGame = systray.AddMenuItem("Start Game", "Show the fruit game")
	t.menuEndGame = systray.AddMenuItem("End Game", "Hide the fruit game")
	systray.AddSeparator()

	t.menuEmotion = systray.AddMenuItem(EmotionTitle(""), "Current emotion")
	t.menuEmotion.Disable()
	t.menuGesture = systray.AddMenuItem(GestureTitle(gesture.None), "Current gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Moodcam")
	t.mu.Unlock()

	t.refresh()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuStartCamera.ClickedCh:
				t.handleStartCamera()
			case <-t.menuStopCamera.ClickedCh:
				t.handleStopCamera()
			case <-t.menuStartGame.ClickedCh:
				t.handleStartGame()
			case <-t.menuEndGame.ClickedCh:
				t.handleEndGame()
			case <-menuDashboard.ClickedCh:
				t.handleOpenDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleStartCamera() {
	if err := t.ctrl.StartSession(); err != nil {
		log.Printf("Failed to start camera: %v", err)
	}
	t.refresh()
}

func (t *Tray) handleStopCamera() {
	summary, err := t.ctrl.StopSession()
	if err != nil {
		log.Printf("Failed to stop camera: %v", err)
	} else {
		log.Printf("Session ended: %d analyses, mostly %s", summary.Stats.Total, summary.Stats.Dominant)
	}
	t.refresh()
}

func (t *Tray) handleStartGame() {
	t.ctrl.StartGame()
	t.refresh()
}

func (t *Tray) handleEndGame() {
	t.ctrl.EndGame()
	t.refresh()
}

func (t *Tray) handleOpenDashboard() {
	t.mu.RLock()
	callback := t.onOpenDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// MenuState says which menu actions are available.
type MenuState struct {
	StartCamera bool
	StopCamera  bool
	StartGame   bool
	EndGame     bool
}

// StateFor returns the menu state for a session and game state. The game
// needs a running camera.
func StateFor(running, gameOn bool) MenuState {
	return MenuState{
		StartCamera: !running,
		StopCamera:  running,
		StartGame:   running && !gameOn,
		EndGame:     gameOn,
	}
}

// refresh enables and disables menu items to match the controller.
func (t *Tray) refresh() {
	state := StateFor(t.ctrl.IsRunning(), t.ctrl.GameActive())

	t.mu.RLock()
	defer t.mu.RUnlock()

	setEnabled(t.menuStartCamera, state.StartCamera)
	setEnabled(t.menuStopCamera, state.StopCamera)
	setEnabled(t.menuStartGame, state.StartGame)
	setEnabled(t.menuEndGame, state.EndGame)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if item == nil {
		return
	}
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// EmotionTitle returns the emotion status line.
func EmotionTitle(emotion string) string {
	if emotion == "" {
		emotion = "unknown"
	}
	return "Emotion: " + emotion
}

// GestureTitle returns the gesture status line.
func GestureTitle(g gesture.Gesture) string {
	if g == "" {
		g = gesture.None
	}
	return "Gesture: " + strings.ReplaceAll(string(g), "_", " ")
}

// PublishStatus updates the status lines and menu state.
func (t *Tray) PublishStatus(status app.Status) {
	t.mu.RLock()
	if t.menuEmotion != nil {
		t.menuEmotion.SetTitle(EmotionTitle(status.Emotion))
	}
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(GestureTitle(status.Gesture))
	}
	t.mu.RUnlock()

	t.refresh()
}
