package api

import (
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
)

// HistoryHandler serves POST /api/undo, /api/redo and /api/clear.
type HistoryHandler struct {
	engine *app.Engine
	logger *zap.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(e *app.Engine, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{engine: e, logger: logger.Named("api.history")}
}

type historyResponse struct {
	Changed bool   `json:"changed"`
	Actions int    `json:"actions"`
	Redo    int    `json:"redo"`
	Version uint64 `json:"version"`
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		changed bool
		err     error
	)
	switch path.Base(r.URL.Path) {
	case "undo":
		changed, err = h.engine.Undo()
	case "redo":
		changed, err = h.engine.Redo()
	case "clear":
		h.engine.Clear()
		changed = true
	default:
		writeError(w, http.StatusNotFound, "Unknown history action")
		return
	}

	if err != nil {
		h.logger.Error("canvas rebuild failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to rebuild canvas")
		return
	}

	rec := h.engine.Recorder()
	writeJSON(w, http.StatusOK, historyResponse{
		Changed: changed,
		Actions: rec.Len(),
		Redo:    rec.RedoLen(),
		Version: h.engine.Compositor().Version(),
	})
}
