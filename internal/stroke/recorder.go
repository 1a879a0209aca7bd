package stroke

import "sync"

// Surface is the raster target a Recorder keeps in sync with its action log.
type Surface interface {
	// Reset clears the surface to its background.
	Reset()
	// Rebuild clears the surface and draws segments in order.
	Rebuild(segments []Segment) error
}

// Recorder owns the action log and the redo stack.
//
// Recording appends a segment and empties the redo stack. Undo and Redo move
// one segment between the two stacks and rebuild the surface from the log, so
// the surface always equals the replay of Actions().
type Recorder struct {
	mu      sync.Mutex
	surface Surface
	actions []Segment
	redo    []Segment
}

// NewRecorder creates an empty recorder bound to surface. A nil surface is
// allowed; history is then tracked without any drawing.
func NewRecorder(surface Surface) *Recorder {
	return &Recorder{surface: surface}
}

// Record appends a new segment built from brush and the two points and clears
// the redo stack. The caller is responsible for drawing it incrementally.
func (r *Recorder) Record(brush Brush, start, end Point) Segment {
	seg := NewSegment(brush, start, end)

	r.mu.Lock()
	r.actions = append(r.actions, seg)
	r.redo = r.redo[:0]
	r.mu.Unlock()

	return seg
}

// Undo moves the most recent segment to the redo stack and redraws.
// It reports false when there is nothing to undo.
func (r *Recorder) Undo() (bool, error) {
	r.mu.Lock()
	n := len(r.actions)
	if n == 0 {
		r.mu.Unlock()
		return false, nil
	}
	seg := r.actions[n-1]
	r.actions = r.actions[:n-1]
	r.redo = append(r.redo, seg)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return true, r.rebuild(snapshot)
}

// Redo moves the most recently undone segment back onto the log and redraws.
// It reports false when the redo stack is empty.
func (r *Recorder) Redo() (bool, error) {
	r.mu.Lock()
	n := len(r.redo)
	if n == 0 {
		r.mu.Unlock()
		return false, nil
	}
	seg := r.redo[n-1]
	r.redo = r.redo[:n-1]
	r.actions = append(r.actions, seg)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return true, r.rebuild(snapshot)
}

// Clear empties both stacks and resets the surface.
func (r *Recorder) Clear() {
	r.ClearHistory()
	if r.surface != nil {
		r.surface.Reset()
	}
}

// ClearHistory empties both stacks without touching the surface. It is used
// when a loaded image replaces the canvas content.
func (r *Recorder) ClearHistory() {
	r.mu.Lock()
	r.actions = nil
	r.redo = nil
	r.mu.Unlock()
}

// Redraw rebuilds the surface from the current log.
func (r *Recorder) Redraw() error {
	r.mu.Lock()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	return r.rebuild(snapshot)
}

// Actions returns a copy of the action log, oldest first.
func (r *Recorder) Actions() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// RedoStack returns a copy of the redo stack; the last element is redone first.
func (r *Recorder) RedoStack() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Segment, len(r.redo))
	copy(out, r.redo)
	return out
}

// Len returns the number of segments in the action log.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// RedoLen returns the number of undone segments.
func (r *Recorder) RedoLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.redo)
}

// CanUndo reports whether Undo would do anything.
func (r *Recorder) CanUndo() bool { return r.Len() > 0 }

// CanRedo reports whether Redo would do anything.
func (r *Recorder) CanRedo() bool { return r.RedoLen() > 0 }

func (r *Recorder) snapshotLocked() []Segment {
	out := make([]Segment, len(r.actions))
	copy(out, r.actions)
	return out
}

func (r *Recorder) rebuild(segments []Segment) error {
	if r.surface == nil {
		return nil
	}
	return r.surface.Rebuild(segments)
}
