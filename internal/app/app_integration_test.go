package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/airsketch/internal/capture"
	"github.com/ayusman/airsketch/internal/detector"
	"github.com/ayusman/airsketch/internal/gesture"
)

type cameraRig struct {
	mu      sync.Mutex
	cams    map[int]*capture.MockCamera
	opened  []int
	failing map[int]error
	release []func()
}

func newCameraRig(t *testing.T) *cameraRig {
	r := &cameraRig{cams: make(map[int]*capture.MockCamera), failing: make(map[int]error)}
	t.Cleanup(func() {
		for _, fn := range r.release {
			fn()
		}
	})
	return r
}

func (r *cameraRig) factory(index int) capture.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()

	cam, release := capture.NewBlankMockCamera()
	r.release = append(r.release, release)
	if err, ok := r.failing[index]; ok {
		cam.FailOpen(err)
	}
	r.cams[index] = cam
	r.opened = append(r.opened, index)
	return cam
}

func (r *cameraRig) camera(index int) *capture.MockCamera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cams[index]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestApp(t *testing.T, rig *cameraRig, det detector.Detector) *App {
	t.Helper()
	a := New(Config{Engine: DefaultEngineConfig()}, nil,
		WithCameraFactory(rig.factory),
		WithDetector(det),
	)
	t.Cleanup(func() {
		a.Stop()
		a.Engine().Close()
	})
	return a
}

func TestApp_DrawsFromCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	det := detector.NewMockDetector()
	det.Enqueue(pointingAt(10, 10), pointingAt(20, 10), pointingAt(30, 10))
	a := newTestApp(t, newCameraRig(t), det)

	if err := a.SourceError(); !errors.Is(err, ErrNoSource) {
		t.Errorf("SourceError() before Start = %v, want ErrNoSource", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	waitFor(t, "two segments", func() bool { return a.Engine().Recorder().Len() == 2 })
	waitFor(t, "idle after queue drains", func() bool {
		return a.LastResult().Intent == gesture.Idle
	})

	if a.SourceError() != nil {
		t.Errorf("SourceError() while running = %v", a.SourceError())
	}
	if !a.Running() {
		t.Error("Running() = false")
	}
	if a.FrameCount() < 4 {
		t.Errorf("FrameCount() = %d, want at least 4", a.FrameCount())
	}
	if !a.Engine().Pen().Up() {
		t.Error("pen should lift once the hand disappears")
	}

	frame, ok := a.LatestFrame()
	if !ok {
		t.Fatal("LatestFrame() returned nothing")
	}
	defer frame.Close()
	if frame.Cols() != capture.DefaultWidth || frame.Rows() != capture.DefaultHeight {
		t.Errorf("frame = %dx%d", frame.Cols(), frame.Rows())
	}
}

func TestApp_StartStopIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	rig := newCameraRig(t)
	a := newTestApp(t, rig, detector.NewMockDetector())

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if len(rig.opened) != 1 {
		t.Errorf("camera opened %d times, want 1", len(rig.opened))
	}

	a.Stop()
	a.Stop()

	if a.Running() {
		t.Error("Running() after Stop")
	}
	if rig.camera(0).IsOpen() {
		t.Error("camera still open after Stop")
	}
}

func TestApp_CameraUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	rig := newCameraRig(t)
	openErr := errors.New("device busy")
	rig.failing[0] = openErr
	a := newTestApp(t, rig, detector.NewMockDetector())

	if err := a.Start(); !errors.Is(err, openErr) {
		t.Fatalf("Start() error = %v, want %v", err, openErr)
	}
	if !errors.Is(a.SourceError(), openErr) {
		t.Errorf("SourceError() = %v", a.SourceError())
	}
	if a.Running() {
		t.Error("Running() with failed camera")
	}

	// The engine keeps serving commands without a source.
	if ok, err := a.Engine().Undo(); ok || err != nil {
		t.Errorf("Undo() = (%v, %v), want no-op", ok, err)
	}
}

func TestApp_SelectCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	rig := newCameraRig(t)
	det := detector.NewMockDetector()
	det.SetHands(pointingAt(100, 100))
	a := newTestApp(t, rig, det)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, "pen down", func() bool { return !a.Engine().Pen().Up() })

	if err := a.SelectCamera(-1); err == nil {
		t.Error("SelectCamera(-1) should fail")
	}

	det.SetHands(nil)
	if err := a.SelectCamera(2); err != nil {
		t.Fatalf("SelectCamera(2) error: %v", err)
	}

	if rig.camera(0).IsOpen() {
		t.Error("previous camera should be closed")
	}
	if a.CameraIndex() != 2 {
		t.Errorf("CameraIndex() = %d, want 2", a.CameraIndex())
	}
	waitFor(t, "frames from new camera", func() bool { return rig.camera(2).Reads() > 0 })
	if !a.Engine().Pen().Up() {
		t.Error("switching cameras should lift the pen")
	}

	rig.failing[3] = errors.New("no such device")
	if err := a.SelectCamera(3); err == nil {
		t.Error("SelectCamera(3) should report the open failure")
	}
	if a.Running() || a.SourceError() == nil {
		t.Error("failed switch should leave the app without a source")
	}
}

func TestApp_SetEnabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	det := detector.NewMockDetector()
	det.SetHands(pointingAt(200, 200))
	a := newTestApp(t, newCameraRig(t), det)

	if !a.IsEnabled() {
		t.Fatal("detection should start enabled")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, "draw intent", func() bool { return a.LastResult().Intent == gesture.Draw })

	a.SetEnabled(false)

	if a.IsEnabled() {
		t.Error("IsEnabled() after disabling")
	}
	if r := a.LastResult(); r.Intent != gesture.Idle || r.BrushActive {
		t.Errorf("LastResult() = %+v, want idle", r)
	}
	if !a.Engine().Pen().Up() {
		t.Error("pen should be up while disabled")
	}

	time.Sleep(2 * FrameInterval)
	calls := det.Calls()
	time.Sleep(10 * FrameInterval)
	if det.Calls() != calls {
		t.Errorf("detector called %d times while disabled", det.Calls()-calls)
	}

	a.SetEnabled(true)
	waitFor(t, "detection resumes", func() bool { return det.Calls() > calls })
}
