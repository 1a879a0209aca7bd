package stroke

// DefaultSmoothingWindow is the number of recent points averaged by a Smoother.
const DefaultSmoothingWindow = 3

// Smoother is a moving-average filter over the last N pushed points.
//
// The window lives in a fixed-capacity ring buffer; once full, each push
// overwrites the oldest point. A Smoother is owned by a single goroutine.
type Smoother struct {
	data     []Point
	capacity int
	size     int
	head     int // index where the next point is written
}

// NewSmoother creates a Smoother averaging up to size points.
// A size below 1 falls back to DefaultSmoothingWindow.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = DefaultSmoothingWindow
	}
	return &Smoother{
		data:     make([]Point, size),
		capacity: size,
	}
}

// Push adds p, evicting the oldest point when the window is full, and returns
// the component-wise mean of every point currently in the window.
func (s *Smoother) Push(p Point) Point {
	s.data[s.head] = p
	s.head = (s.head + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	return s.Mean()
}

// Mean returns the average of the buffered points, or the zero Point when empty.
func (s *Smoother) Mean() Point {
	if s.size == 0 {
		return Point{}
	}

	var sumX, sumY float64
	for i := 0; i < s.size; i++ {
		p := s.data[s.index(i)]
		sumX += p.X
		sumY += p.Y
	}
	n := float64(s.size)
	return Point{X: sumX / n, Y: sumY / n}
}

// Points returns the buffered points ordered from oldest to newest.
func (s *Smoother) Points() []Point {
	out := make([]Point, s.size)
	for i := range out {
		out[i] = s.data[s.index(i)]
	}
	return out
}

// index maps the i-th oldest element to its slot.
func (s *Smoother) index(i int) int {
	tail := (s.head - s.size + s.capacity) % s.capacity
	return (tail + i) % s.capacity
}

// Reset empties the window.
func (s *Smoother) Reset() {
	for i := range s.data {
		s.data[i] = Point{}
	}
	s.size = 0
	s.head = 0
}

// Len returns the number of buffered points.
func (s *Smoother) Len() int {
	return s.size
}

// Capacity returns the window size.
func (s *Smoother) Capacity() int {
	return s.capacity
}
