// Package history keeps a bounded in-memory trail of recent straddle
// prices for quick client redraws. One window belongs to exactly one
// streaming session and dies with it.
package history

import "github.com/shopspring/decimal"

// DefaultCapacity bounds a window when the caller passes no limit.
const DefaultCapacity = 100

// Point is one tick: a display timestamp plus the straddle price per
// index that sampled successfully this tick.
type Point struct {
	Timestamp string
	Straddles map[string]decimal.Decimal
}

// Window is a FIFO of the most recent points. Not safe for concurrent
// use; a session touches its window from a single goroutine.
type Window struct {
	capacity int
	points   []Point
}

// NewWindow creates a window holding at most capacity points.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity, points: make([]Point, 0, capacity)}
}

// Push appends a point, evicting the oldest when the window is full.
func (w *Window) Push(p Point) {
	if len(w.points) == w.capacity {
		copy(w.points, w.points[1:])
		w.points = w.points[:len(w.points)-1]
	}
	w.points = append(w.points, p)
}

// Len reports the number of retained points.
func (w *Window) Len() int {
	return len(w.points)
}

// Points returns the retained points oldest first. The slice is a copy.
func (w *Window) Points() []Point {
	out := make([]Point, len(w.points))
	copy(out, w.points)
	return out
}
