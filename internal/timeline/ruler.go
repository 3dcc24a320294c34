package timeline

// Ruler derives the tick geometry for the visible window: how much time
// one division covers and how many pixels it occupies. The ruler owns
// these two values; every other view receives them through Viewport and
// never recomputes them.
type Ruler struct {
	start     int64
	end       int64
	intervals int
	widthPx   int

	intervalTime  int64
	intervalWidth int
}

func NewRuler(widthPx int) *Ruler {
	r := &Ruler{
		widthPx:   widthPx,
		intervals: defaultIntervals,
	}
	r.refresh()

	return r
}

// SetConstraints updates the window the ruler draws over and recomputes
// the division geometry.
func (r *Ruler) SetConstraints(start, end int64, intervals int) {
	r.start = start
	r.end = end
	if intervals > 0 {
		r.intervals = intervals
	}
	r.refresh()
}

func (r *Ruler) refresh() {
	r.intervalTime = (r.end - r.start) / int64(r.intervals)
	r.intervalWidth = r.widthPx / r.intervals
}

func (r *Ruler) Start() int64 {
	return r.start
}

func (r *Ruler) End() int64 {
	return r.end
}

func (r *Ruler) Intervals() int {
	return r.intervals
}

func (r *Ruler) Width() int {
	return r.widthPx
}

// IntervalTime is the time one division covers, in milliseconds.
func (r *Ruler) IntervalTime() int64 {
	return r.intervalTime
}

// IntervalWidth is the width of one division in pixels.
func (r *Ruler) IntervalWidth() int {
	return r.intervalWidth
}
