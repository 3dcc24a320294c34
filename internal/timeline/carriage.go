package timeline

// Carriage is one track's placement on the timeline: the span of data
// it covers and the offset it has been dragged to. Like every view it
// renders against a pushed viewport copy.
type Carriage struct {
	id     string
	name   string
	start  int64
	end    int64
	offset int64

	viewport Viewport
}

func NewCarriage(id, name string, start, end, offset int64) *Carriage {
	return &Carriage{
		id:     id,
		name:   name,
		start:  start,
		end:    end,
		offset: offset,
	}
}

func (c *Carriage) SetViewport(v Viewport) {
	c.viewport = v
}

// SetOffset moves the carriage along the timeline without changing the
// span of data it covers.
func (c *Carriage) SetOffset(offset int64) {
	c.offset = offset
}

func (c *Carriage) Id() string {
	return c.id
}

func (c *Carriage) Name() string {
	return c.name
}

func (c *Carriage) Start() int64 {
	return c.start
}

func (c *Carriage) End() int64 {
	return c.end
}

func (c *Carriage) Offset() int64 {
	return c.offset
}

func (c *Carriage) Viewport() Viewport {
	return c.viewport
}
