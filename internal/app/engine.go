package app

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/canvas"
	"github.com/ayusman/airsketch/internal/detector"
	"github.com/ayusman/airsketch/internal/gesture"
	"github.com/ayusman/airsketch/internal/stroke"
)

// Pixel mapping defaults: landmarks are scaled to a 640x360 reference frame and
// then multiplied by the scaling factor, giving a 1280x720 canvas.
const (
	DefaultReferenceWidth  = 640
	DefaultReferenceHeight = 360
	DefaultScalingFactor   = 2
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	ReferenceWidth  int
	ReferenceHeight int
	ScalingFactor   int
	SmoothingWindow int
	Brush           stroke.Brush
}

// DefaultEngineConfig returns the standard 1280x720 setup with a 3-point window.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ReferenceWidth:  DefaultReferenceWidth,
		ReferenceHeight: DefaultReferenceHeight,
		ScalingFactor:   DefaultScalingFactor,
		SmoothingWindow: stroke.DefaultSmoothingWindow,
		Brush:           stroke.DefaultBrush(),
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.ReferenceWidth <= 0 {
		c.ReferenceWidth = DefaultReferenceWidth
	}
	if c.ReferenceHeight <= 0 {
		c.ReferenceHeight = DefaultReferenceHeight
	}
	if c.ScalingFactor <= 0 {
		c.ScalingFactor = DefaultScalingFactor
	}
	if c.SmoothingWindow <= 0 {
		c.SmoothingWindow = stroke.DefaultSmoothingWindow
	}
	if c.Brush.Width == 0 {
		c.Brush = stroke.DefaultBrush()
	}
	return c
}

// PenState tracks whether a stroke is in progress. The pen is up when
// Previous is nil; the next Draw frame then only sets the anchor.
type PenState struct {
	BrushActive bool
	Previous    *stroke.Point
}

// Up reports whether the pen is lifted.
func (p PenState) Up() bool { return p.Previous == nil }

// FrameResult is what one processed frame means for the UI.
type FrameResult struct {
	Intent      gesture.Intent  `json:"intent"`
	Cursor      *stroke.Point   `json:"cursor,omitempty"`
	BrushActive bool            `json:"brush_active"`
	Segment     *stroke.Segment `json:"segment,omitempty"`
}

// Engine turns per-frame hand landmarks into strokes on the canvas.
//
// It owns the classifier, the cursor and paint smoothers, the stroke recorder,
// the compositor and the pen state. All methods are serialized by one mutex, so
// a frame is fully processed before the next one or any command runs.
type Engine struct {
	mu         sync.Mutex
	cfg        EngineConfig
	classifier *gesture.Classifier
	cursorAvg  *stroke.Smoother
	paintAvg   *stroke.Smoother
	recorder   *stroke.Recorder
	compositor *canvas.Compositor
	brush      stroke.Brush
	pen        PenState
	cursor     *stroke.Point
	logger     *zap.Logger
}

// NewEngine creates an engine with a blank canvas sized from cfg.
func NewEngine(cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	compositor := canvas.New(
		cfg.ReferenceWidth*cfg.ScalingFactor,
		cfg.ReferenceHeight*cfg.ScalingFactor,
		canvas.WithLogger(logger),
	)

	return &Engine{
		cfg:        cfg,
		classifier: gesture.NewClassifier(logger),
		cursorAvg:  stroke.NewSmoother(cfg.SmoothingWindow),
		paintAvg:   stroke.NewSmoother(cfg.SmoothingWindow),
		recorder:   stroke.NewRecorder(compositor),
		compositor: compositor,
		brush:      cfg.Brush,
		logger:     logger.Named("engine"),
	}
}

// ToPixel maps a normalized landmark to canvas pixels. The reference-frame
// coordinate is truncated to an integer before scaling.
func (e *Engine) ToPixel(p detector.Point3D) stroke.Point {
	return stroke.Point{
		X: float64(int(p.X*float64(e.cfg.ReferenceWidth)) * e.cfg.ScalingFactor),
		Y: float64(int(p.Y*float64(e.cfg.ReferenceHeight)) * e.cfg.ScalingFactor),
	}
}

// ProcessFrame advances the state machine by one frame. Only the first hand is
// used. It never fails: unusable input is treated as Idle.
func (e *Engine) ProcessFrame(hands []detector.HandLandmarks) FrameResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(hands) == 0 {
		e.liftLocked()
		return FrameResult{Intent: gesture.Idle, Cursor: e.cursorLocked()}
	}

	hand := hands[0]
	intent := e.classifier.Classify(hand.Points[:])

	tip := hand.IndexFingertip()
	var raw stroke.Point
	if tip.Finite() {
		raw = e.ToPixel(tip)
		c := e.cursorAvg.Push(raw)
		e.cursor = &c
	} else {
		intent = gesture.Idle
	}

	result := FrameResult{Intent: intent}

	switch intent {
	case gesture.ClearRequested:
		e.clearLocked()
		e.logger.Info("canvas cleared by gesture")

	case gesture.Draw:
		// Segment endpoints are whole pixels.
		p := e.paintAvg.Push(raw).Trunc()
		if e.pen.Up() {
			e.pen = PenState{BrushActive: true, Previous: &p}
			break
		}
		seg := e.recorder.Record(e.brush, *e.pen.Previous, p)
		if err := e.compositor.Apply(seg); err != nil {
			e.logger.Warn("segment not drawn", zap.Error(err))
		}
		e.pen.Previous = &p
		result.Segment = &seg

	default:
		e.liftLocked()
	}

	result.BrushActive = e.pen.BrushActive
	result.Cursor = e.cursorLocked()
	return result
}

func (e *Engine) liftLocked() {
	e.pen = PenState{}
}

func (e *Engine) clearLocked() {
	e.recorder.Clear()
	e.liftLocked()
}

func (e *Engine) cursorLocked() *stroke.Point {
	if e.cursor == nil {
		return nil
	}
	c := *e.cursor
	return &c
}

// LiftPen ends the current stroke without recording anything.
func (e *Engine) LiftPen() {
	e.mu.Lock()
	e.liftLocked()
	e.mu.Unlock()
}

// Undo removes the most recent segment. It reports false when there is nothing to undo.
func (e *Engine) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorder.Undo()
}

// Redo restores the most recently undone segment.
func (e *Engine) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorder.Redo()
}

// Clear wipes the canvas, both history stacks and the pen state.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// LoadImage replaces the canvas with the image at path and drops the history.
// On failure the canvas and history are unchanged.
func (e *Engine) LoadImage(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.compositor.Load(path); err != nil {
		return err
	}
	e.recorder.ClearHistory()
	e.liftLocked()
	return nil
}

// SaveImage writes the canvas to path.
func (e *Engine) SaveImage(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compositor.Save(path)
}

// ExportPDF writes the current action log as vector lines.
func (e *Engine) ExportPDF(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, h := e.compositor.Size()
	return canvas.ExportPDF(path, w, h, e.recorder.Actions())
}

// SetBrush changes the brush used for segments recorded from now on.
func (e *Engine) SetBrush(b stroke.Brush) error {
	if err := b.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.brush = b
	e.mu.Unlock()
	return nil
}

// Brush returns the brush applied to new segments.
func (e *Engine) Brush() stroke.Brush {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brush
}

// Pen returns a copy of the pen state.
func (e *Engine) Pen() PenState {
	e.mu.Lock()
	defer e.mu.Unlock()
	pen := PenState{BrushActive: e.pen.BrushActive}
	if e.pen.Previous != nil {
		p := *e.pen.Previous
		pen.Previous = &p
	}
	return pen
}

// Cursor returns the last smoothed cursor position, or nil before the first hand.
func (e *Engine) Cursor() *stroke.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursorLocked()
}

// Compositor returns the canvas surface. Readers use Snapshot or the encoders.
func (e *Engine) Compositor() *canvas.Compositor { return e.compositor }

// Recorder returns the segment history.
func (e *Engine) Recorder() *stroke.Recorder { return e.recorder }

// Close releases the canvas.
func (e *Engine) Close() error {
	return e.compositor.Close()
}
