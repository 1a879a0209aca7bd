// Package detector provides hand detection interfaces and types for the sketch engine.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrIncompleteHand is returned when a detector reports fewer than NumLandmarks points.
var ErrIncompleteHand = errors.New("incomplete hand landmarks")

// Point3D represents a landmark in normalized image space.
// X and Y are in [0,1] with the origin at the top-left of the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether X and Y are real numbers.
func (p Point3D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// IndexFingertip returns the index fingertip landmark, the point that drives the brush.
func (h *HandLandmarks) IndexFingertip() Point3D {
	return h.Points[IndexTip]
}

// HandFromPoints builds a HandLandmarks from a variable-length point list.
// Detectors that hand back partial results must go through here so that a short
// list is reported instead of silently zero-filled.
func HandFromPoints(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) < NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d of %d points", ErrIncompleteHand, len(points), NumLandmarks)
	}

	h := HandLandmarks{
		Handedness: handedness,
		Score:      score,
	}
	copy(h.Points[:], points[:NumLandmarks])
	return h, nil
}
