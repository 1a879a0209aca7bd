package capture

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion gate tuning.
const (
	motionBlurSize      = 21
	motionPixelDiff     = 25
	DefaultMotionChange = 0.5 // percent of pixels
)

// MotionGate reports whether a frame differs enough from the previous one to be
// worth sending to the hand detector. When the scene is still, the caller reuses
// the last detection, which keeps the pen state identical while saving a
// detector round trip.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionGate creates a gate that opens when more than threshold percent of
// pixels change. A threshold <= 0 uses DefaultMotionChange.
func NewMotionGate(threshold float64) *MotionGate {
	if threshold <= 0 {
		threshold = DefaultMotionChange
	}
	return &MotionGate{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Changed compares frame with the previous one and returns whether it moved,
// along with the percentage of changed pixels. The first frame always counts
// as changed. On error the stored frame is kept.
func (g *MotionGate) Changed(frame *gocv.Mat) (bool, float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		if err := gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray); err != nil {
			return false, 0, fmt.Errorf("convert to gray: %w", err)
		}
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(gray, &blurred, image.Point{X: motionBlurSize, Y: motionBlurSize}, 0, 0, gocv.BorderDefault); err != nil {
		return false, 0, fmt.Errorf("blur: %w", err)
	}

	if !g.primed || blurred.Rows() != g.prev.Rows() || blurred.Cols() != g.prev.Cols() {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return true, 100, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(blurred, g.prev, &diff); err != nil {
		return false, 0, fmt.Errorf("diff: %w", err)
	}
	gocv.Threshold(diff, &diff, motionPixelDiff, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed, nil
}

// Reset forgets the previous frame; the next frame counts as changed.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
}

// Close releases the stored frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prev.Close()
	g.prev = gocv.NewMat()
	g.primed = false
}
