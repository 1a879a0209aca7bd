package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/detector"
	"github.com/ayusman/airsketch/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newTestEngine(t *testing.T) *app.Engine {
	t.Helper()
	e := app.NewEngine(app.DefaultEngineConfig(), nil)
	t.Cleanup(func() { e.Close() })
	return e
}

// drawStroke feeds n pointing frames moving right along y.
func drawStroke(e *app.Engine, n int, y float64) {
	for i := 0; i < n; i++ {
		hand := detector.IndexPointingLandmarks(0.2+float64(i)*0.05, y)
		e.ProcessFrame([]detector.HandLandmarks{hand})
	}
	e.ProcessFrame(nil)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
