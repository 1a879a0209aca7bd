package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/gesture"
	"github.com/ayusman/airsketch/internal/stroke"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveSource is the running pipeline as seen by the live feed.
type LiveSource interface {
	LastResult() app.FrameResult
	IsEnabled() bool
	FrameCount() uint64
}

// liveMessage is sent to every client on each tick.
type liveMessage struct {
	Intent      gesture.Intent `json:"intent"`
	Cursor      *stroke.Point  `json:"cursor,omitempty"`
	BrushActive bool           `json:"brush_active"`
	Enabled     bool           `json:"enabled"`
	Version     uint64         `json:"version"`
	Frames      uint64         `json:"frames"`
	Timestamp   int64          `json:"timestamp"`
}

// LiveHandler broadcasts the cursor, intent and canvas version via WebSocket
// at the frame rate. Clients redraw the overlay from the cursor and refetch
// /api/canvas when the version changes.
type LiveHandler struct {
	source   LiveSource
	version  func() uint64
	interval time.Duration
	logger   *zap.Logger

	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLiveHandler creates a LiveHandler and starts its broadcast loop.
func NewLiveHandler(src LiveSource, version func() uint64, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &LiveHandler{
		source:   src,
		version:  version,
		interval: app.FrameInterval,
		logger:   logger.Named("live"),
		clients:  make(map[*websocket.Conn]bool),
		stop:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects all clients.
func (h *LiveHandler) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

func (h *LiveHandler) message() liveMessage {
	result := h.source.LastResult()
	return liveMessage{
		Intent:      result.Intent,
		Cursor:      result.Cursor,
		BrushActive: result.BrushActive,
		Enabled:     h.source.IsEnabled(),
		Version:     h.version(),
		Frames:      h.source.FrameCount(),
		Timestamp:   time.Now().UnixMilli(),
	}
}

// broadcast sends the live state to all connected clients.
func (h *LiveHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, err := json.Marshal(h.message())
		if err != nil {
			h.logger.Warn("live message not encoded", zap.Error(err))
			continue
		}

		var failed []*websocket.Conn
		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = append(failed, conn)
			}
		}
		h.mu.RUnlock()

		// The reader loop in ServeHTTP returns once the connection is closed.
		for _, conn := range failed {
			conn.Close()
		}
	}
}
