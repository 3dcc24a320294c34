package timeline

import (
	"log/slog"

	"github.com/obslab/server/pkg/clamp"
)

// Timeline ties the scale, the ruler, the needle and the track
// carriages together. Every mutation recomputes the ruler geometry and
// pushes a fresh viewport copy to all registered views, which is the
// only path by which views learn about the window.
//
// A Timeline is not safe for concurrent use. Callers own the
// serialization of operations on it.
type Timeline struct {
	scale  *Scale
	ruler  *Ruler
	needle *Needle
	views  []TrackView
	tracks []*Carriage
	logger *slog.Logger
}

func New(minStart, maxEnd int64, rulerWidthPx int, logger *slog.Logger) *Timeline {
	t := &Timeline{
		scale:  NewScale(minStart, maxEnd),
		ruler:  NewRuler(rulerWidthPx),
		needle: &Needle{},
		logger: logger,
	}
	t.rescale()

	return t
}

// ZoomIn doubles the zoom level and pushes the narrowed window to all
// views.
func (t *Timeline) ZoomIn() {
	t.scale.ZoomIn()
	t.rescale()
	t.logger.Debug("zoom in", "zoom", t.scale.Zoom())
}

// ZoomOut halves the zoom level and pushes the widened window to all
// views.
func (t *Timeline) ZoomOut() {
	t.scale.ZoomOut()
	t.rescale()
	t.logger.Debug("zoom out", "zoom", t.scale.Zoom())
}

// SetExtent replaces the covered span, keeping the current zoom level.
func (t *Timeline) SetExtent(minStart, maxEnd int64) {
	t.scale.SetExtent(minStart, maxEnd)
	t.rescale()
}

// RegisterView subscribes a view to window changes. The view receives
// the current viewport immediately so it never renders stale geometry.
func (t *Timeline) RegisterView(v TrackView) {
	t.views = append(t.views, v)
	v.SetViewport(t.Viewport())
}

// AddTrack places a new carriage on the timeline and registers it as a
// view. When the track reaches past the current extent in either
// direction, the extent grows to cover it.
func (t *Timeline) AddTrack(id, name string, start, end, offset int64) *Carriage {
	c := NewCarriage(id, name, start, end, offset)
	t.tracks = append(t.tracks, c)
	t.RegisterView(c)

	minStart := t.scale.MinStart()
	maxEnd := t.scale.MaxEnd()
	if offset+start < minStart {
		minStart = offset + start
	}
	if offset+end > maxEnd {
		maxEnd = offset + end
	}
	if minStart != t.scale.MinStart() || maxEnd != t.scale.MaxEnd() {
		t.SetExtent(minStart, maxEnd)
	}

	t.logger.Debug("track added", "trackId", id, "name", name)

	return c
}

// SetCurrentTime moves the needle, clamped to the extent.
func (t *Timeline) SetCurrentTime(ms int64) {
	t.needle.SetCurrentTime(clamp.Clamp(ms, t.scale.MinStart(), t.scale.MaxEnd()))
}

// rescale recomputes the ruler geometry from the scale and pushes the
// resulting viewport to the needle and every registered view.
func (t *Timeline) rescale() {
	t.ruler.SetConstraints(t.scale.WindowStart(), t.scale.WindowEnd(), t.scale.Intervals())

	vp := t.Viewport()
	t.needle.SetViewport(vp)
	for _, v := range t.views {
		v.SetViewport(vp)
	}
}

// Viewport assembles the snapshot views render against.
func (t *Timeline) Viewport() Viewport {
	return Viewport{
		WindowStart:   t.scale.WindowStart(),
		WindowEnd:     t.scale.WindowEnd(),
		IntervalTime:  t.ruler.IntervalTime(),
		IntervalWidth: t.ruler.IntervalWidth(),
	}
}

func (t *Timeline) Zoom() int {
	return t.scale.Zoom()
}

func (t *Timeline) WindowStart() int64 {
	return t.scale.WindowStart()
}

func (t *Timeline) WindowEnd() int64 {
	return t.scale.WindowEnd()
}

func (t *Timeline) MinStart() int64 {
	return t.scale.MinStart()
}

func (t *Timeline) MaxEnd() int64 {
	return t.scale.MaxEnd()
}

func (t *Timeline) Intervals() int {
	return t.scale.Intervals()
}

func (t *Timeline) Needle() *Needle {
	return t.needle
}

func (t *Timeline) Ruler() *Ruler {
	return t.ruler
}

func (t *Timeline) Tracks() []*Carriage {
	return t.tracks
}

// Track returns the carriage with the given id, or nil when no such
// track is on the timeline.
func (t *Timeline) Track(id string) *Carriage {
	for _, c := range t.tracks {
		if c.Id() == id {
			return c
		}
	}
	return nil
}
