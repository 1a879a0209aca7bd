package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/capture"
	"github.com/ayusman/airsketch/internal/store"
)

// MaxProbedCameras bounds how many device indices GET /api/camera tries.
const MaxProbedCameras = 5

// CameraSource is the part of the running application the camera handler drives.
type CameraSource interface {
	CameraIndex() int
	SelectCamera(index int) error
	SourceError() error
	Running() bool
}

// CameraHandler serves GET and PUT /api/camera.
type CameraHandler struct {
	source CameraSource
	store  *store.Store
	probe  func(limit int) []capture.Device
	logger *zap.Logger
}

// NewCameraHandler creates a CameraHandler. The selected index is persisted
// when s is not nil.
func NewCameraHandler(src CameraSource, s *store.Store, logger *zap.Logger) *CameraHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CameraHandler{
		source: src,
		store:  s,
		probe:  capture.ListCameras,
		logger: logger.Named("api.camera"),
	}
}

type cameraRequest struct {
	Index *int `json:"index"`
}

type cameraResponse struct {
	Index   int              `json:"index"`
	Running bool             `json:"running"`
	Error   string           `json:"error,omitempty"`
	Devices []capture.Device `json:"devices,omitempty"`
}

func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := h.status()
		resp.Devices = h.probe(MaxProbedCameras)
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPut:
		h.selectCamera(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CameraHandler) status() cameraResponse {
	resp := cameraResponse{
		Index:   h.source.CameraIndex(),
		Running: h.source.Running(),
	}
	if err := h.source.SourceError(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// selectCamera handles PUT /api/camera. A camera that fails to open is still
// selected; the response carries the error and status 503.
func (h *CameraHandler) selectCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Index == nil || *req.Index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	err := h.source.SelectCamera(*req.Index)
	if h.store != nil {
		if perr := h.store.Settings().SaveCameraIndex(*req.Index); perr != nil {
			h.logger.Warn("camera index not persisted", zap.Error(perr))
		}
	}

	resp := h.status()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
