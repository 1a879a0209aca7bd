// Package app wires the camera, hand detector and drawing engine into the running
// airsketch application.
package app

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airsketch/internal/capture"
	"github.com/ayusman/airsketch/internal/detector"
	"github.com/ayusman/airsketch/internal/gesture"
)

// FrameInterval is the pause between camera reads, giving roughly 60 Hz.
const FrameInterval = 16 * time.Millisecond

// ErrNoSource is returned by SourceError before any camera was opened.
var ErrNoSource = errors.New("no camera source")

// Config holds configuration options for the application.
type Config struct {
	Engine      EngineConfig
	CameraIndex int
	FPS         int
	Mirror      bool
	// MotionThreshold enables the still-frame gate when > 0.
	MotionThreshold float64
}

// CameraFactory opens frame sources by device index.
type CameraFactory func(index int) capture.Camera

// Option customizes an App.
type Option func(*App)

// WithCameraFactory replaces the GoCV camera constructor, mainly for tests.
func WithCameraFactory(f CameraFactory) Option {
	return func(a *App) { a.newCamera = f }
}

// WithDetector sets the hand detector. Without it a MockDetector that never sees
// a hand is used.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithEngine uses an existing engine instead of creating one from Config.Engine.
func WithEngine(e *Engine) Option {
	return func(a *App) { a.engine = e }
}

// App runs the capture loop: one goroutine per active camera reads frames,
// mirrors them, asks the detector for landmarks and feeds the engine.
type App struct {
	config    Config
	engine    *Engine
	detector  detector.Detector
	newCamera CameraFactory
	logger    *zap.Logger
	started   time.Time

	// lifecycle serializes Start, Stop and SelectCamera.
	lifecycle sync.Mutex
	// step serializes handing a frame to the engine with SetEnabled.
	step sync.Mutex

	mu          sync.RWMutex
	camera      capture.Camera
	cameraIndex int
	stopCh      chan struct{}
	doneCh      chan struct{}
	sourceErr   error
	enabled     bool
	closed      bool
	last        FrameResult
	lastFrame   *gocv.Mat
	frames      uint64
}

// New creates an App. Detection starts enabled.
func New(config Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		config:      config,
		newCamera:   capture.NewCamera,
		logger:      logger.Named("app"),
		cameraIndex: config.CameraIndex,
		enabled:     true,
		sourceErr:   ErrNoSource,
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.engine == nil {
		a.engine = NewEngine(config.Engine, logger)
	}
	if a.detector == nil {
		a.detector = detector.NewMockDetector()
	}

	return a
}

// Start opens the configured camera and begins the capture loop. If the camera
// cannot be opened the error is returned and kept as SourceError; the engine
// stays usable for commands and nothing is retried.
func (a *App) Start() error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.RLock()
	running := a.stopCh != nil
	index := a.cameraIndex
	a.mu.RUnlock()
	if running {
		return nil
	}

	return a.startSource(index)
}

// Stop halts the capture loop and releases the camera and detector.
// It is safe to call more than once.
func (a *App) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.stopSource()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.lastFrame != nil {
		a.lastFrame.Close()
		a.lastFrame = nil
	}
	a.mu.Unlock()

	if err := a.detector.Close(); err != nil {
		a.logger.Warn("error closing detector", zap.Error(err))
	}
	a.logger.Info("detection pipeline stopped")
}

// SelectCamera switches to another device. The current source is stopped and
// its goroutine drained before the new one opens, so no frame from the old
// camera reaches the engine afterwards.
func (a *App) SelectCamera(index int) error {
	if index < 0 {
		return errors.New("camera index must not be negative")
	}

	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.stopSource()
	a.engine.LiftPen()

	a.mu.Lock()
	a.cameraIndex = index
	a.mu.Unlock()

	return a.startSource(index)
}

func (a *App) startSource(index int) error {
	cam := a.newCamera(index)
	if a.config.FPS > 0 {
		cam.SetFPS(a.config.FPS)
	}

	if err := cam.Open(); err != nil {
		a.mu.Lock()
		a.sourceErr = err
		a.mu.Unlock()
		a.logger.Error("camera unavailable", zap.Int("index", index), zap.Error(err))
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	a.mu.Lock()
	a.camera = cam
	a.stopCh = stop
	a.doneCh = done
	a.sourceErr = nil
	a.closed = false
	a.mu.Unlock()

	go a.runPipeline(cam, stop, done)

	a.logger.Info("detection pipeline started", zap.Int("camera", index), zap.Int("fps", cam.FPS()))
	return nil
}

// stopSource signals the capture goroutine, waits for it to exit and closes
// the camera. Must be called with lifecycle held.
func (a *App) stopSource() {
	a.mu.Lock()
	cam, stop, done := a.camera, a.stopCh, a.doneCh
	a.camera, a.stopCh, a.doneCh = nil, nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	if err := cam.Close(); err != nil {
		a.logger.Warn("error closing camera", zap.Error(err))
	}
	a.engine.LiftPen()
}

// SourceError returns why the camera is not delivering frames, or nil while
// the capture loop is running.
func (a *App) SourceError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sourceErr
}

// Running reports whether a capture goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// CameraIndex returns the selected device index.
func (a *App) CameraIndex() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cameraIndex
}

// SetEnabled enables or disables hand detection. While disabled the pen is up.
func (a *App) SetEnabled(enabled bool) {
	a.step.Lock()
	defer a.step.Unlock()

	a.mu.Lock()
	a.enabled = enabled
	if !enabled {
		a.last = FrameResult{Intent: gesture.Idle, Cursor: a.last.Cursor}
	}
	a.mu.Unlock()

	if !enabled {
		a.engine.LiftPen()
	}
	a.logger.Info("detection toggled", zap.Bool("enabled", enabled))
}

// IsEnabled returns whether hand detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LastResult returns the outcome of the most recently processed frame.
func (a *App) LastResult() FrameResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// FrameCount returns how many frames have been processed.
func (a *App) FrameCount() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// LatestFrame returns a copy of the last mirrored camera frame. The caller must
// close it.
func (a *App) LatestFrame() (*gocv.Mat, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastFrame == nil || a.lastFrame.Empty() {
		return nil, false
	}
	clone := a.lastFrame.Clone()
	return &clone, true
}

// Uptime returns the time since New.
func (a *App) Uptime() time.Duration {
	return time.Since(a.started)
}

// Engine returns the drawing engine.
func (a *App) Engine() *Engine {
	return a.engine
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
