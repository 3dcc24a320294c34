package timeline

// Needle marks the current playback time on the timeline. It positions
// itself against the viewport it was last handed.
type Needle struct {
	viewport    Viewport
	currentTime int64
}

func (n *Needle) SetViewport(v Viewport) {
	n.viewport = v
}

func (n *Needle) SetCurrentTime(ms int64) {
	n.currentTime = ms
}

func (n *Needle) CurrentTime() int64 {
	return n.currentTime
}

func (n *Needle) Viewport() Viewport {
	return n.viewport
}
