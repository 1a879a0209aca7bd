package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/canvas"
	"github.com/ayusman/airsketch/internal/store"
)

// DrawingsHandler saves, opens and exports the canvas and keeps the drawings
// history.
//
// Routes:
//
//	GET  /api/drawings        list the history, newest first (?limit=n)
//	POST /api/drawings        save the canvas to {"path"}
//	POST /api/drawings/open   replace the canvas with {"path"}
//	POST /api/export/pdf      write the action log as vector lines to {"path"}
//
// Paths are relative to the drawings directory and may not leave it; an empty
// path on save or export picks a timestamped file name there.
type DrawingsHandler struct {
	engine *app.Engine
	store  *store.Store
	dir    string
	logger *zap.Logger
}

// NewDrawingsHandler creates a DrawingsHandler. s may be nil, in which case
// nothing is recorded and GET returns an empty list.
func NewDrawingsHandler(e *app.Engine, s *store.Store, dir string, logger *zap.Logger) *DrawingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DrawingsHandler{engine: e, store: s, dir: dir, logger: logger.Named("api.drawings")}
}

// errPathOutsideDir is returned for absolute paths and paths climbing out of
// the drawings directory.
var errPathOutsideDir = errors.New("path must be relative to the drawings directory")

type pathRequest struct {
	Path string `json:"path"`
}

type listDrawingsResponse struct {
	Drawings []*store.Drawing `json:"drawings"`
}

func (h *DrawingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case route == "/api/drawings" && r.Method == http.MethodGet:
		h.list(w, r)
	case route == "/api/drawings" && r.Method == http.MethodPost:
		h.save(w, r)
	case route == "/api/drawings/open" && r.Method == http.MethodPost:
		h.open(w, r)
	case route == "/api/export/pdf" && r.Method == http.MethodPost:
		h.exportPDF(w, r)
	case route == "/api/drawings" || route == "/api/drawings/open" || route == "/api/export/pdf":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/drawings.
func (h *DrawingsHandler) list(w http.ResponseWriter, r *http.Request) {
	resp := listDrawingsResponse{Drawings: []*store.Drawing{}}
	if h.store == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	drawings, err := h.store.Drawings().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list drawings")
		return
	}
	resp.Drawings = drawings
	writeJSON(w, http.StatusOK, resp)
}

// save handles POST /api/drawings.
func (h *DrawingsHandler) save(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	path, err := h.resolve(req.Path, ".png")
	if err != nil {
		writeInvalidPath(w, err)
		return
	}
	if err := h.engine.SaveImage(path); err != nil {
		h.writeCanvasError(w, err, http.StatusBadRequest)
		return
	}

	format, _ := canvas.FormatFromPath(path)
	writeJSON(w, http.StatusCreated, h.record(path, store.DrawingSaved, string(format)))
}

// open handles POST /api/drawings/open.
func (h *DrawingsHandler) open(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	path, err := h.resolve(req.Path, "")
	if err != nil {
		writeInvalidPath(w, err)
		return
	}
	if err := h.engine.LoadImage(path); err != nil {
		h.writeCanvasError(w, err, http.StatusNotFound)
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	writeJSON(w, http.StatusOK, h.record(path, store.DrawingOpened, format))
}

// exportPDF handles POST /api/export/pdf.
func (h *DrawingsHandler) exportPDF(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	path, err := h.resolve(req.Path, ".pdf")
	if err != nil {
		writeInvalidPath(w, err)
		return
	}
	if err := h.engine.ExportPDF(path); err != nil {
		h.writeCanvasError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, h.record(path, store.DrawingExported, "pdf"))
}

// resolve maps a request path into the drawings directory. An empty path gets
// a timestamped name with ext.
func (h *DrawingsHandler) resolve(path, ext string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" && ext != "" {
		path = "airsketch-" + time.Now().Format("20060102-150405.000") + ext
	}
	path = filepath.Clean(path)
	if !filepath.IsLocal(path) {
		return "", errPathOutsideDir
	}
	return filepath.Join(h.dir, path), nil
}

func writeInvalidPath(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: canvas.KindInvalidPath.String()})
}

// record adds a history entry. A store failure is logged; the file operation
// itself already succeeded.
func (h *DrawingsHandler) record(path string, kind store.DrawingKind, format string) *store.Drawing {
	width, height := h.engine.Compositor().Size()
	d := &store.Drawing{
		Path:     path,
		Kind:     kind,
		Format:   format,
		Width:    width,
		Height:   height,
		Segments: h.engine.Recorder().Len(),
	}
	if h.store == nil {
		d.CreatedAt = time.Now()
		return d
	}
	if err := h.store.Drawings().Create(d); err != nil {
		h.logger.Warn("drawing not recorded", zap.String("path", path), zap.Error(err))
	}
	return d
}

// writeCanvasError maps canvas load/save failures to HTTP statuses.
// missing is the status used for a path that does not exist.
func (h *DrawingsHandler) writeCanvasError(w http.ResponseWriter, err error, missing int) {
	kind, ok := canvas.ErrorKind(err)
	if !ok {
		h.logger.Error("canvas operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case canvas.KindInvalidPath:
		status = missing
	case canvas.KindUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case canvas.KindDecode:
		status = http.StatusUnprocessableEntity
	case canvas.KindPermissionDenied:
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("canvas operation failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}
