package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airsketch/internal/canvas"
)

// StreamInterval paces the MJPEG stream at roughly 15 FPS.
const StreamInterval = 66 * time.Millisecond

// FrameSource provides the latest mirrored camera frame. The caller closes it.
type FrameSource interface {
	LatestFrame() (*gocv.Mat, bool)
}

// StreamHandler serves the camera frames the pipeline last saw as MJPEG.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
	logger   *zap.Logger
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames FrameSource, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{frames: frames, interval: StreamInterval, logger: logger.Named("stream")}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := h.frames.LatestFrame()
		if !ok {
			continue
		}

		// Encode as JPEG
		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			h.logger.Debug("frame not encoded", zap.Error(err))
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, err = w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()
		if err != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// CanvasHandler serves the current drawing surface as PNG, or JPEG with
// ?format=jpeg.
type CanvasHandler struct {
	compositor *canvas.Compositor
}

// NewCanvasHandler creates a CanvasHandler for c.
func NewCanvasHandler(c *canvas.Compositor) *CanvasHandler {
	return &CanvasHandler{compositor: c}
}

func (h *CanvasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := canvas.FormatPNG
	switch r.URL.Query().Get("format") {
	case "", "png":
	case "jpeg", "jpg":
		format = canvas.FormatJPEG
	default:
		http.Error(w, "Unsupported format", http.StatusBadRequest)
		return
	}

	version := h.compositor.Version()
	var buf bytes.Buffer
	if err := h.compositor.Encode(&buf, format); err != nil {
		http.Error(w, "Failed to encode canvas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/"+string(format))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Canvas-Version", strconv.FormatUint(version, 10))
	w.Write(buf.Bytes())
}
