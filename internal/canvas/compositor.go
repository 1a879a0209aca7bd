// Package canvas owns the raster drawing surface and keeps it consistent with the
// stroke history.
package canvas

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/stroke"
)

// Default surface size: the 640x360 detector reference frame scaled by 2.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// DefaultJPEGQuality is used by Save for .jpg files.
const DefaultJPEGQuality = 95

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compositor) {
		if logger != nil {
			c.logger = logger.Named("canvas")
		}
	}
}

// WithBackground overrides the white background used by Reset and Rebuild.
func WithBackground(col color.Color) Option {
	return func(c *Compositor) {
		c.background = gg.FromColor(col)
	}
}

// Compositor is the fixed-size raster surface strokes are drawn onto.
//
// Every read and write holds the compositor mutex, so the frame pipeline and the
// display path can use it from different goroutines.
type Compositor struct {
	mu         sync.RWMutex
	dc         *gg.Context
	width      int
	height     int
	background gg.RGBA
	version    uint64
	logger     *zap.Logger
}

// New creates a blank white surface of the given size.
func New(width, height int, opts ...Option) *Compositor {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	c := &Compositor{
		width:      width,
		height:     height,
		background: gg.White,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.dc = gg.NewContext(width, height)
	c.dc.ClearWithColor(c.background)
	return c
}

// Apply draws one segment on top of the current surface.
func (c *Compositor) Apply(seg stroke.Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.drawLocked(seg); err != nil {
		return err
	}
	c.version++
	return nil
}

// Rebuild clears the surface and replays segments in order.
func (c *Compositor) Rebuild(segments []stroke.Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dc.ClearWithColor(c.background)
	c.version++
	for i, seg := range segments {
		if err := c.drawLocked(seg); err != nil {
			c.logger.Warn("rebuild stopped", zap.Int("segment", i), zap.Error(err))
			return err
		}
	}
	c.logger.Debug("surface rebuilt", zap.Int("segments", len(segments)))
	return nil
}

// Reset clears the surface to the background colour.
func (c *Compositor) Reset() {
	c.mu.Lock()
	c.dc.ClearWithColor(c.background)
	c.version++
	c.mu.Unlock()
}

func (c *Compositor) drawLocked(seg stroke.Segment) error {
	c.dc.SetColor(seg.Color)
	c.dc.SetLineWidth(float64(seg.Width))
	c.dc.SetLineCap(lineCap(seg.Cap))
	c.dc.SetLineJoin(gg.LineJoinRound)
	c.dc.DrawLine(seg.Start.X, seg.Start.Y, seg.End.X, seg.End.Y)
	return c.dc.Stroke()
}

func lineCap(sc stroke.Cap) gg.LineCap {
	if sc == stroke.CapSquare {
		return gg.LineCapSquare
	}
	return gg.LineCapRound
}

// replace swaps in a new surface image that already has the compositor's size.
func (c *Compositor) replace(img image.Image) {
	next := gg.NewContextForImage(img)

	c.mu.Lock()
	prev := c.dc
	c.dc = next
	c.version++
	c.mu.Unlock()

	_ = prev.Close()
}

// Snapshot returns a copy of the current surface.
func (c *Compositor) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img := c.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

// EncodePNG writes the surface as PNG.
func (c *Compositor) EncodePNG(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dc.EncodePNG(w)
}

// EncodeJPEG writes the surface as JPEG with the given quality (1-100).
func (c *Compositor) EncodeJPEG(w io.Writer, quality int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dc.EncodeJPEG(w, quality)
}

// Size returns the surface dimensions in pixels.
func (c *Compositor) Size() (width, height int) {
	return c.width, c.height
}

// Version increments on every mutation of the surface.
func (c *Compositor) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Close releases the drawing context.
func (c *Compositor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Close()
}
