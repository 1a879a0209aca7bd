package canvas

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
)

// Kind classifies image load and save failures.
type Kind int

const (
	KindIO Kind = iota
	KindInvalidPath
	KindUnsupportedFormat
	KindPermissionDenied
	KindDecode
	KindEncode
)

// String returns a short machine-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidPath:
		return "invalid_path"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindPermissionDenied:
		return "permission_denied"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	default:
		return "io"
	}
}

// LoadError is returned when an image cannot replace the surface.
// The surface is left unchanged.
type LoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError is returned when the surface cannot be written to disk.
type SaveError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %q: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

var (
	// ErrEmptyPath is wrapped by load and save errors for a blank path.
	ErrEmptyPath = errors.New("empty path")
	// ErrUnsupportedFormat is wrapped when the file extension or content is not a known image format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// classify maps an os/fs error to a Kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrEmptyPath):
		return KindInvalidPath
	case errors.Is(err, image.ErrFormat), errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	default:
		return KindIO
	}
}

// ErrorKind extracts the Kind from a LoadError or SaveError anywhere in err's chain.
func ErrorKind(err error) (Kind, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	var se *SaveError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return KindIO, false
}
