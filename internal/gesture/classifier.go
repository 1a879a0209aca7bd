// Package gesture turns a single frame of hand landmarks into a drawing intent.
package gesture

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/detector"
)

var (
	// ErrMissingLandmark is returned when a referenced joint is not in the landmark set.
	ErrMissingLandmark = errors.New("missing landmark")
	// ErrInvalidLandmark is returned when a referenced joint has a non-finite coordinate.
	ErrInvalidLandmark = errors.New("invalid landmark")
)

// Intent is the meaning of a hand pose for the current frame.
type Intent int

const (
	// Idle lifts the pen.
	Idle Intent = iota
	// Draw extends the current stroke to the index fingertip.
	Draw
	// ClearRequested wipes the canvas and its history.
	ClearRequested
)

// String returns the lowercase name used in logs and the live feed.
func (i Intent) String() string {
	switch i {
	case Draw:
		return "draw"
	case ClearRequested:
		return "clear"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler so intents encode as names in JSON.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// FingerPair identifies a finger by its tip and PIP joint indices.
type FingerPair struct {
	Tip int
	PIP int
}

// Tracked fingers. The thumb does not take part in classification.
var (
	IndexFinger  = FingerPair{Tip: detector.IndexTip, PIP: detector.IndexPIP}
	MiddleFinger = FingerPair{Tip: detector.MiddleTip, PIP: detector.MiddlePIP}
	RingFinger   = FingerPair{Tip: detector.RingTip, PIP: detector.RingPIP}
	PinkyFinger  = FingerPair{Tip: detector.PinkyTip, PIP: detector.PinkyPIP}
)

var (
	drawOthers  = []FingerPair{MiddleFinger, RingFinger, PinkyFinger}
	clearOthers = []FingerPair{IndexFinger, MiddleFinger, RingFinger}
)

// OnlyFingerExtended reports whether candidate is extended while every finger in
// others is folded. Image space has its origin top-left, so "extended" means the
// tip has a smaller Y than the PIP joint and "folded" means a strictly larger Y.
func OnlyFingerExtended(points []detector.Point3D, candidate FingerPair, others []FingerPair) (bool, error) {
	tip, pip, err := pair(points, candidate)
	if err != nil {
		return false, err
	}
	if !(tip.Y < pip.Y) {
		return false, nil
	}

	for _, f := range others {
		tip, pip, err := pair(points, f)
		if err != nil {
			return false, err
		}
		if !(tip.Y > pip.Y) {
			return false, nil
		}
	}
	return true, nil
}

func pair(points []detector.Point3D, f FingerPair) (detector.Point3D, detector.Point3D, error) {
	tip, err := at(points, f.Tip)
	if err != nil {
		return detector.Point3D{}, detector.Point3D{}, err
	}
	pip, err := at(points, f.PIP)
	if err != nil {
		return detector.Point3D{}, detector.Point3D{}, err
	}
	return tip, pip, nil
}

func at(points []detector.Point3D, idx int) (detector.Point3D, error) {
	if idx < 0 || idx >= len(points) {
		return detector.Point3D{}, fmt.Errorf("%w: index %d of %d", ErrMissingLandmark, idx, len(points))
	}
	p := points[idx]
	if !p.Finite() {
		return detector.Point3D{}, fmt.Errorf("%w: index %d is (%v, %v)", ErrInvalidLandmark, idx, p.X, p.Y)
	}
	return p, nil
}

// Classifier maps landmark sets to intents, logging rejected input.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a Classifier. A nil logger discards diagnostics.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger.Named("classifier")}
}

// Classify returns the intent for one frame. Malformed input never escapes as an
// error: it is logged and classified as Idle. ClearRequested wins over Draw.
func (c *Classifier) Classify(points []detector.Point3D) Intent {
	wipe, err := OnlyFingerExtended(points, PinkyFinger, clearOthers)
	if err != nil {
		c.logger.Debug("landmarks rejected", zap.Error(err))
		return Idle
	}
	if wipe {
		return ClearRequested
	}

	draw, err := OnlyFingerExtended(points, IndexFinger, drawOthers)
	if err != nil {
		c.logger.Debug("landmarks rejected", zap.Error(err))
		return Idle
	}
	if draw {
		return Draw
	}
	return Idle
}

// Classify is a convenience wrapper around a Classifier with no logger.
func Classify(points []detector.Point3D) Intent {
	return NewClassifier(nil).Classify(points)
}
