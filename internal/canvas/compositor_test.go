package canvas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/airsketch/internal/stroke"
)

const (
	testWidth  = 200
	testHeight = 120
)

var red = color.NRGBA{R: 255, A: 255}

func seg(x1, y1, x2, y2 float64) stroke.Segment {
	return stroke.Segment{
		Color: red,
		Width: 6,
		Cap:   stroke.CapRound,
		Start: stroke.Point{X: x1, Y: y1},
		End:   stroke.Point{X: x2, Y: y2},
	}
}

func zigzag() []stroke.Segment {
	return []stroke.Segment{
		seg(10, 10, 60, 40),
		seg(60, 40, 110, 10),
		seg(110, 10, 160, 40),
		{Color: color.NRGBA{B: 255, A: 255}, Width: 12, Cap: stroke.CapSquare,
			Start: stroke.Point{X: 20, Y: 90}, End: stroke.Point{X: 180, Y: 90}},
	}
}

// maxDiff returns the largest per-channel difference between two images.
func maxDiff(a, b *image.RGBA) int {
	if a.Bounds() != b.Bounds() {
		return 256
	}
	worst := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

func isWhite(img *image.RGBA) bool {
	for _, v := range img.Pix {
		if v != 255 {
			return false
		}
	}
	return true
}

func TestNew(t *testing.T) {
	c := New(testWidth, testHeight)
	defer c.Close()

	w, h := c.Size()
	if w != testWidth || h != testHeight {
		t.Errorf("Size() = %dx%d, want %dx%d", w, h, testWidth, testHeight)
	}
	if !isWhite(c.Snapshot()) {
		t.Error("new surface should be blank white")
	}

	d := New(0, -1)
	defer d.Close()
	if w, h := d.Size(); w != DefaultWidth || h != DefaultHeight {
		t.Errorf("default size = %dx%d, want %dx%d", w, h, DefaultWidth, DefaultHeight)
	}
}

func TestCompositor_Apply(t *testing.T) {
	c := New(testWidth, testHeight)
	defer c.Close()
	before := c.Version()

	if err := c.Apply(seg(20, 50, 180, 50)); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	px := c.Snapshot().RGBAAt(100, 50)
	if px.R < 200 || px.G > 60 || px.B > 60 {
		t.Errorf("pixel on the line = %+v, want red", px)
	}
	far := c.Snapshot().RGBAAt(100, 100)
	if far != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel away from the line = %+v, want white", far)
	}
	if c.Version() <= before {
		t.Error("Version() should increase after Apply")
	}
}

func TestCompositor_RebuildMatchesIncremental(t *testing.T) {
	incremental := New(testWidth, testHeight)
	defer incremental.Close()
	for _, s := range zigzag() {
		if err := incremental.Apply(s); err != nil {
			t.Fatalf("Apply() error: %v", err)
		}
	}

	rebuilt := New(testWidth, testHeight)
	defer rebuilt.Close()
	rebuilt.Apply(seg(0, 0, testWidth, testHeight))
	if err := rebuilt.Rebuild(zigzag()); err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}

	if d := maxDiff(incremental.Snapshot(), rebuilt.Snapshot()); d != 0 {
		t.Errorf("rebuild differs from incremental drawing by %d", d)
	}
}

func TestCompositor_RebuildIsIdempotent(t *testing.T) {
	c := New(testWidth, testHeight)
	defer c.Close()

	c.Rebuild(zigzag())
	first := c.Snapshot()
	c.Rebuild(zigzag())

	if d := maxDiff(first, c.Snapshot()); d != 0 {
		t.Errorf("second rebuild differs by %d", d)
	}
}

func TestCompositor_UndoRedoRestoresPixels(t *testing.T) {
	c := New(testWidth, testHeight)
	defer c.Close()
	r := stroke.NewRecorder(c)

	brush := stroke.Brush{Color: red, Width: 5, Cap: stroke.CapRound}
	points := []stroke.Point{{X: 10, Y: 10}, {X: 40, Y: 30}, {X: 80, Y: 20}, {X: 120, Y: 60}, {X: 150, Y: 100}}
	for i := 1; i < len(points); i++ {
		s := r.Record(brush, points[i-1], points[i])
		if err := c.Apply(s); err != nil {
			t.Fatalf("Apply() error: %v", err)
		}
	}
	original := c.Snapshot()

	for i := 0; i < 3; i++ {
		if ok, err := r.Undo(); !ok || err != nil {
			t.Fatalf("Undo() = (%v, %v)", ok, err)
		}
	}
	if maxDiff(original, c.Snapshot()) == 0 {
		t.Fatal("surface unchanged after undo")
	}
	for i := 0; i < 3; i++ {
		if ok, err := r.Redo(); !ok || err != nil {
			t.Fatalf("Redo() = (%v, %v)", ok, err)
		}
	}

	if d := maxDiff(original, c.Snapshot()); d != 0 {
		t.Errorf("surface after undo/redo differs by %d", d)
	}
}

func TestCompositor_ClearAfterSegments(t *testing.T) {
	c := New(testWidth, testHeight)
	defer c.Close()
	r := stroke.NewRecorder(c)

	for i := 0; i < 5; i++ {
		s := r.Record(stroke.DefaultBrush(), stroke.Point{X: float64(i * 30), Y: 20}, stroke.Point{X: float64(i*30 + 25), Y: 20})
		c.Apply(s)
	}

	r.Clear()

	if !isWhite(c.Snapshot()) {
		t.Error("surface should be blank after clear")
	}
	if ok, _ := r.Undo(); ok {
		t.Error("undo after clear should be a no-op")
	}
}

func TestCompositor_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("png round trip", func(t *testing.T) {
		c := New(testWidth, testHeight)
		defer c.Close()
		c.Rebuild(zigzag())
		want := c.Snapshot()
		path := filepath.Join(dir, "drawing.png")

		if err := c.Save(path); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		c.Reset()
		if err := c.Load(path); err != nil {
			t.Fatalf("Load() error: %v", err)
		}

		if d := maxDiff(want, c.Snapshot()); d > 1 {
			t.Errorf("loaded image differs by %d", d)
		}
	})

	t.Run("jpeg is written", func(t *testing.T) {
		c := New(testWidth, testHeight)
		defer c.Close()
		path := filepath.Join(dir, "drawing.JPG")

		if err := c.Save(path); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Error("file does not start with a JPEG marker")
		}
	})

	t.Run("smaller image is scaled to the surface", func(t *testing.T) {
		small := image.NewNRGBA(image.Rect(0, 0, 20, 12))
		for i := range small.Pix {
			small.Pix[i] = 0
		}
		for i := 3; i < len(small.Pix); i += 4 {
			small.Pix[i] = 255
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, small); err != nil {
			t.Fatalf("encode fixture: %v", err)
		}

		c := New(testWidth, testHeight)
		defer c.Close()
		if err := c.Decode(&buf); err != nil {
			t.Fatalf("Decode() error: %v", err)
		}

		if px := c.Snapshot().RGBAAt(testWidth-1, testHeight-1); px.R > 10 {
			t.Errorf("corner pixel = %+v, want black", px)
		}
	})
}

func TestCompositor_LoadFailureLeavesSurface(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name string
		path string
		kind Kind
	}{
		{"empty path", "", KindInvalidPath},
		{"missing file", filepath.Join(dir, "missing.png"), KindInvalidPath},
		{"not an image", garbage, KindUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testWidth, testHeight)
			defer c.Close()
			c.Rebuild(zigzag())
			before := c.Snapshot()
			version := c.Version()

			err := c.Load(tt.path)

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if le.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", le.Kind, tt.kind)
			}
			if d := maxDiff(before, c.Snapshot()); d != 0 {
				t.Errorf("surface changed by %d after failed load", d)
			}
			if c.Version() != version {
				t.Error("version changed after failed load")
			}
		})
	}
}

func TestCompositor_SaveErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		kind Kind
	}{
		{"empty path", "", KindInvalidPath},
		{"unknown extension", filepath.Join(dir, "drawing.tiff"), KindUnsupportedFormat},
		{"no extension", filepath.Join(dir, "drawing"), KindUnsupportedFormat},
		{"missing directory", filepath.Join(dir, "nope", "drawing.png"), KindInvalidPath},
	}

	c := New(testWidth, testHeight)
	defer c.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Save(tt.path)

			kind, ok := ErrorKind(err)
			if !ok {
				t.Fatalf("expected *SaveError, got %v", err)
			}
			if kind != tt.kind {
				t.Errorf("Kind = %s, want %s", kind, tt.kind)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.png", FormatPNG, false},
		{"a.PNG", FormatPNG, false},
		{"a.jpg", FormatJPEG, false},
		{"a.jpeg", FormatJPEG, false},
		{"a.gif", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FormatFromPath(%q) = (%q, %v)", tt.path, got, err)
		}
	}
}

func TestExportPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawing.pdf")

	if err := ExportPDF(path, testWidth, testHeight, zigzag()); err != nil {
		t.Fatalf("ExportPDF() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}
