// Package timeline models a zoomable window over a span of track time
// and keeps every registered view of it in sync.
package timeline

import "github.com/obslab/server/pkg/clamp"

const (
	MinZoom = 1
	MaxZoom = 32

	defaultIntervals = 20
)

// Scale holds the zoom level and the visible window it produces over
// the extent [minStart, maxEnd]. All times are milliseconds.
type Scale struct {
	minStart int64
	maxEnd   int64

	windowStart int64
	windowEnd   int64
	zoom        int
}

func NewScale(minStart, maxEnd int64) *Scale {
	s := &Scale{
		minStart: minStart,
		maxEnd:   maxEnd,
		zoom:     MinZoom,
	}
	s.recompute()

	return s
}

// ZoomIn doubles the zoom level, up to MaxZoom, and recenters the
// window on the midpoint of the extent.
func (s *Scale) ZoomIn() {
	s.zoom = clamp.Clamp(s.zoom*2, MinZoom, MaxZoom)
	s.recompute()
}

// ZoomOut halves the zoom level, down to MinZoom. At MinZoom the window
// snaps exactly to the extent, leaving no rounding residue behind.
func (s *Scale) ZoomOut() {
	s.zoom = clamp.Clamp(s.zoom/2, MinZoom, MaxZoom)
	s.recompute()
}

// SetExtent replaces the covered span and recomputes the window at the
// current zoom level.
func (s *Scale) SetExtent(minStart, maxEnd int64) {
	s.minStart = minStart
	s.maxEnd = maxEnd
	s.recompute()
}

func (s *Scale) recompute() {
	if s.zoom == MinZoom {
		s.windowStart = s.minStart
		s.windowEnd = s.maxEnd
		return
	}

	span := s.maxEnd - s.minStart
	mid := s.minStart + span/2
	half := span / int64(s.zoom) / 2
	s.windowStart = mid - half
	s.windowEnd = mid + half
}

// Intervals is the number of ruler divisions for the current zoom
// level: coarse zooms get 20, middle zooms 10, deep zooms 5.
func (s *Scale) Intervals() int {
	return zoomIntervals(s.zoom)
}

func zoomIntervals(zoom int) int {
	switch {
	case zoom < MinZoom || zoom > MaxZoom:
		// out of contract, fall back rather than fail
		return defaultIntervals
	case zoom <= 2:
		return 20
	case zoom <= 8:
		return 10
	default:
		return 5
	}
}

func (s *Scale) Zoom() int {
	return s.zoom
}

func (s *Scale) WindowStart() int64 {
	return s.windowStart
}

func (s *Scale) WindowEnd() int64 {
	return s.windowEnd
}

func (s *Scale) MinStart() int64 {
	return s.minStart
}

func (s *Scale) MaxEnd() int64 {
	return s.maxEnd
}
