package canvas

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"
)

// Format is an image file format supported by Save.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// FormatFromPath picks the save format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load decodes the image at path, scales it to the surface size and replaces the
// surface with it. On failure the surface is unchanged.
func (c *Compositor) Load(path string) error {
	if strings.TrimSpace(path) == "" {
		return &LoadError{Kind: KindInvalidPath, Path: path, Err: ErrEmptyPath}
	}

	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Kind: classify(err), Path: path, Err: err}
	}
	defer f.Close()

	if err := c.decode(f, path); err != nil {
		return err
	}
	c.logger.Info("image loaded", zap.String("path", path))
	return nil
}

// Decode reads an image from r and replaces the surface with it.
func (c *Compositor) Decode(r io.Reader) error {
	return c.decode(r, "")
}

func (c *Compositor) decode(r io.Reader, path string) error {
	src, format, err := image.Decode(r)
	if err != nil {
		kind := KindDecode
		if classify(err) == KindUnsupportedFormat {
			kind = KindUnsupportedFormat
		}
		return &LoadError{Kind: kind, Path: path, Err: err}
	}

	c.replace(c.fit(src))
	c.logger.Debug("image decoded",
		zap.String("format", format),
		zap.Int("src_width", src.Bounds().Dx()),
		zap.Int("src_height", src.Bounds().Dy()))
	return nil
}

// fit scales src to exactly the surface size.
func (c *Compositor) fit(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	if src.Bounds().Size() == dst.Bounds().Size() {
		xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Save writes the surface to path. The format comes from the extension
// (.png, .jpg, .jpeg).
func (c *Compositor) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return &SaveError{Kind: KindInvalidPath, Path: path, Err: ErrEmptyPath}
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return &SaveError{Kind: KindUnsupportedFormat, Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil {
		return &SaveError{Kind: classify(err), Path: path, Err: err}
	} else if !info.IsDir() {
		return &SaveError{Kind: KindInvalidPath, Path: path, Err: fmt.Errorf("%s is not a directory", dir)}
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf, format); err != nil {
		return &SaveError{Kind: KindEncode, Path: path, Err: err}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &SaveError{Kind: classify(err), Path: path, Err: err}
	}

	c.logger.Info("image saved", zap.String("path", path), zap.String("format", string(format)))
	return nil
}

// Encode writes the surface in the given format.
func (c *Compositor) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatPNG:
		return c.EncodePNG(w)
	case FormatJPEG:
		return c.EncodeJPEG(w, DefaultJPEGQuality)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
