package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/airsketch/internal/store"
)

func TestDrawingsHandler_SaveOpenList(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)
	engine := newTestEngine(t)
	handler := NewDrawingsHandler(engine, s, dir, nil)
	drawStroke(engine, 5, 0.4)

	// 1. Save to a relative path
	rec := doJSON(t, handler, http.MethodPost, "/api/drawings", map[string]string{"path": "first.png"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/drawings: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var saved store.Drawing
	decode(t, rec, &saved)

	wantPath := filepath.Join(dir, "first.png")
	if saved.Path != wantPath || saved.Kind != store.DrawingSaved || saved.Format != "png" {
		t.Errorf("saved = %+v", saved)
	}
	if saved.Width != 1280 || saved.Height != 720 || saved.Segments != 4 {
		t.Errorf("saved dimensions/segments = %dx%d/%d", saved.Width, saved.Height, saved.Segments)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	// 2. Save with a generated name
	rec = doJSON(t, handler, http.MethodPost, "/api/drawings", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/drawings without path: expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	// 3. Open the first file; history is dropped
	engine.Clear()
	rec = doJSON(t, handler, http.MethodPost, "/api/drawings/open", map[string]string{"path": "first.png"})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/drawings/open: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var opened store.Drawing
	decode(t, rec, &opened)
	if opened.Kind != store.DrawingOpened || opened.Segments != 0 {
		t.Errorf("opened = %+v", opened)
	}
	if engine.Recorder().CanUndo() {
		t.Error("undo should be unavailable after open")
	}

	// 4. List newest first
	rec = doJSON(t, handler, http.MethodGet, "/api/drawings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/drawings: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var listed listDrawingsResponse
	decode(t, rec, &listed)
	if len(listed.Drawings) != 3 {
		t.Fatalf("listed %d drawings, want 3", len(listed.Drawings))
	}
	if listed.Drawings[0].Kind != store.DrawingOpened {
		t.Errorf("newest entry = %+v, want the opened file", listed.Drawings[0])
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/drawings?limit=1", nil)
	decode(t, rec, &listed)
	if len(listed.Drawings) != 1 {
		t.Errorf("limit=1 returned %d drawings", len(listed.Drawings))
	}
}

func TestDrawingsHandler_OpenErrors(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t)
	handler := NewDrawingsHandler(engine, nil, dir, nil)
	drawStroke(engine, 3, 0.6)

	os.WriteFile(filepath.Join(dir, "garbage.png"), []byte("not an image"), 0o644)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"missing path", map[string]string{}, http.StatusBadRequest, ""},
		{"missing file", map[string]string{"path": "nope.png"}, http.StatusNotFound, "invalid_path"},
		{"undecodable file", map[string]string{"path": "garbage.png"}, http.StatusUnsupportedMediaType, "unsupported_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := engine.Compositor().Version()

			rec := doJSON(t, handler, http.MethodPost, "/api/drawings/open", tt.body)

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			decode(t, rec, &resp)
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if engine.Compositor().Version() != before || engine.Recorder().Len() != 2 {
				t.Error("failed open must leave the canvas and history alone")
			}
		})
	}
}

func TestDrawingsHandler_SaveErrors(t *testing.T) {
	dir := t.TempDir()
	handler := NewDrawingsHandler(newTestEngine(t), nil, dir, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"unsupported extension", "drawing.gif", http.StatusUnsupportedMediaType},
		{"missing directory", filepath.Join("no", "such", "dir.png"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/drawings", map[string]string{"path": tt.path})

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDrawingsHandler_PathsStayInDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "drawings")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(root, "outside.png")
	engine := newTestEngine(t)
	handler := NewDrawingsHandler(engine, nil, dir, nil)
	drawStroke(engine, 3, 0.5)

	tests := []struct {
		name   string
		target string
		path   string
	}{
		{"save absolute", "/api/drawings", outside},
		{"save parent", "/api/drawings", "../outside.png"},
		{"save nested parent", "/api/drawings", "sub/../../outside.png"},
		{"open absolute", "/api/drawings/open", "/etc/hosts"},
		{"open parent", "/api/drawings/open", "../outside.png"},
		{"export absolute", "/api/export/pdf", "/tmp/x.pdf"},
		{"export parent", "/api/export/pdf", "../x.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := engine.Compositor().Version()

			rec := doJSON(t, handler, http.MethodPost, tt.target, map[string]string{"path": tt.path})

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			decode(t, rec, &resp)
			if resp.Kind != "invalid_path" {
				t.Errorf("kind = %q, want invalid_path", resp.Kind)
			}
			if engine.Compositor().Version() != before || engine.Recorder().Len() != 2 {
				t.Error("rejected path must leave the canvas and history alone")
			}
		})
	}

	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Errorf("file written outside the drawings directory: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/drawings", map[string]string{"path": "sub/../inside.png"})
	if rec.Code != http.StatusCreated {
		t.Errorf("path cleaned into the directory: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
}

func TestDrawingsHandler_RequiresJSON(t *testing.T) {
	dir := t.TempDir()
	handler := NewDrawingsHandler(newTestEngine(t), nil, dir, nil)

	tests := []struct {
		name        string
		contentType string
		wantCode    int
	}{
		{"text plain", "text/plain", http.StatusUnsupportedMediaType},
		{"form", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing", "", http.StatusUnsupportedMediaType},
		{"json with charset", "application/json; charset=utf-8", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/drawings", strings.NewReader(`{"path": "note.png"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "note.png")); err != nil {
		t.Errorf("json request should have saved the drawing: %v", err)
	}
}

func TestDrawingsHandler_ExportPDF(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)
	engine := newTestEngine(t)
	handler := NewDrawingsHandler(engine, s, dir, nil)
	drawStroke(engine, 4, 0.3)

	rec := doJSON(t, handler, http.MethodPost, "/api/export/pdf", map[string]string{"path": "out.pdf"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.pdf"))
	if err != nil {
		t.Fatalf("pdf not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}

	list, _ := s.Drawings().List(0)
	if len(list) != 1 || list[0].Kind != store.DrawingExported || list[0].Segments != 3 {
		t.Errorf("history = %+v", list)
	}
}

func TestDrawingsHandler_Routing(t *testing.T) {
	handler := NewDrawingsHandler(newTestEngine(t), nil, t.TempDir(), nil)

	if rec := doJSON(t, handler, http.MethodDelete, "/api/drawings", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/drawings: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/export/pdf", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/export/pdf: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	rec := doJSON(t, handler, http.MethodGet, "/api/drawings", nil)
	var listed listDrawingsResponse
	decode(t, rec, &listed)
	if listed.Drawings == nil || len(listed.Drawings) != 0 {
		t.Errorf("without a store the list should be empty, got %+v", listed.Drawings)
	}
}
