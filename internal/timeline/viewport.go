package timeline

// Viewport is the read-only snapshot of the visible window that the
// timeline pushes to its views. Views keep the copy they were handed
// and never reach back into the scale or ruler.
type Viewport struct {
	WindowStart   int64
	WindowEnd     int64
	IntervalTime  int64
	IntervalWidth int
}

// TrackView is anything that renders against the visible window and
// needs to be told when it moves.
type TrackView interface {
	SetViewport(Viewport)
}
