package api

import (
	"errors"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/store"
	"github.com/ayusman/airsketch/internal/stroke"
)

// BrushHandler reads and changes the brush used for new segments.
type BrushHandler struct {
	engine *app.Engine
	store  *store.Store
	logger *zap.Logger
}

// NewBrushHandler creates a BrushHandler. When s is nil changes are not persisted.
func NewBrushHandler(e *app.Engine, s *store.Store, logger *zap.Logger) *BrushHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrushHandler{engine: e, store: s, logger: logger.Named("api.brush")}
}

// brushRequest is a partial update; empty fields keep the current value.
type brushRequest struct {
	Color string `json:"color"`
	Width int    `json:"width"`
	Cap   string `json:"cap"`
}

type brushResponse struct {
	Color   string   `json:"color"`
	Width   int      `json:"width"`
	Cap     string   `json:"cap"`
	Palette []string `json:"palette,omitempty"`
}

func toBrushResponse(b stroke.Brush) brushResponse {
	return brushResponse{
		Color: stroke.HexColor(b.Color),
		Width: b.Width,
		Cap:   b.Cap.String(),
	}
}

func (h *BrushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get handles GET /api/brush.
func (h *BrushHandler) get(w http.ResponseWriter, r *http.Request) {
	resp := toBrushResponse(h.engine.Brush())
	for name := range stroke.Palette {
		resp.Palette = append(resp.Palette, name)
	}
	sort.Strings(resp.Palette)
	writeJSON(w, http.StatusOK, resp)
}

// update handles PUT /api/brush.
func (h *BrushHandler) update(w http.ResponseWriter, r *http.Request) {
	var req brushRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	b := h.engine.Brush()
	if req.Color != "" {
		c, err := stroke.LookupColor(req.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.Color = c
	}
	if req.Width != 0 {
		b.Width = req.Width
	}
	if req.Cap != "" {
		sc, err := stroke.ParseCap(req.Cap)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.Cap = sc
	}

	if err := h.engine.SetBrush(b); err != nil {
		if errors.Is(err, stroke.ErrInvalidBrush) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to set brush")
		return
	}

	if h.store != nil {
		if err := h.store.Settings().SaveBrush(b); err != nil {
			h.logger.Warn("brush not persisted", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, toBrushResponse(b))
}
