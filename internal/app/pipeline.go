package app

import (
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airsketch/internal/capture"
	"github.com/ayusman/airsketch/internal/detector"
)

// runPipeline is the capture loop for one camera. It exits when stop is closed
// and closes done on return.
//
// Per frame:
//  1. read a frame; read errors are logged once per failure streak
//  2. mirror it horizontally when configured
//  3. keep a copy for the live stream
//  4. skip detection while disabled, or reuse the last hands on a still frame
//  5. detect hands and pass them to the engine synchronously
func (a *App) runPipeline(cam capture.Camera, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var gate *capture.MotionGate
	if a.config.MotionThreshold > 0 {
		gate = capture.NewMotionGate(a.config.MotionThreshold)
		defer gate.Close()
	}

	var (
		failing   bool
		lastHands []detector.HandLandmarks
	)

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			if !failing {
				a.logger.Warn("error reading frame", zap.Error(err))
				failing = true
			}
			continue
		}
		if failing {
			a.logger.Info("camera recovered")
			failing = false
		}

		if a.config.Mirror {
			if err := capture.Mirror(frame); err != nil {
				a.logger.Debug("error mirroring frame", zap.Error(err))
			}
		}
		a.keepFrame(frame)

		if !a.IsEnabled() {
			frame.Close()
			lastHands = nil
			continue
		}

		hands := lastHands
		if gate == nil || a.moved(gate, frame) {
			hands, err = a.detector.Detect(frame)
			if err != nil {
				a.logger.Debug("error detecting hands", zap.Error(err))
				hands = nil
			}
			lastHands = hands
		}
		frame.Close()

		// A stop requested while detecting must not let this frame through.
		select {
		case <-stop:
			return
		default:
		}

		a.step.Lock()
		if a.IsEnabled() {
			a.recordResult(a.engine.ProcessFrame(hands))
		}
		a.step.Unlock()
	}
}

// moved reports whether the frame differs from the last one. A frame the gate
// cannot compare is treated as moved so detection still runs.
func (a *App) moved(gate *capture.MotionGate, frame *gocv.Mat) bool {
	changed, _, err := gate.Changed(frame)
	if err != nil {
		a.logger.Debug("error comparing frames", zap.Error(err))
		return true
	}
	return changed
}

// keepFrame replaces the stored live-view frame with a copy of frame.
func (a *App) keepFrame(frame *gocv.Mat) {
	clone := frame.Clone()

	a.mu.Lock()
	prev := a.lastFrame
	a.lastFrame = &clone
	a.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

func (a *App) recordResult(result FrameResult) {
	a.mu.Lock()
	a.last = result
	a.frames++
	a.mu.Unlock()

	if result.Segment != nil {
		a.logger.Debug("segment recorded",
			zap.Float64("x0", result.Segment.Start.X), zap.Float64("y0", result.Segment.Start.Y),
			zap.Float64("x1", result.Segment.End.X), zap.Float64("y1", result.Segment.End.Y))
	}
}
