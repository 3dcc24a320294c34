package transport

import (
	"fmt"
	"log/slog"
	"math"
)

// speedEpsilon is the spacing between 1.0 and the next larger float64.
// Rates within this distance of 1.0 count as exactly 1x, and rates
// below it in magnitude count as zero.
const speedEpsilon = 0x1p-52

// State is the delivery mode the controller is in. Stepping is distinct
// from Playing: the presentation clock is halted and frames advance only
// on explicit request.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StateStepping
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateStepping:
		return "stepping"
	default:
		return "stopped"
	}
}

// Controller sequences a Stream through rate changes, stepping, seeking
// and resets, and keeps audio delivery gated to forward 1x playback.
//
// A Controller is not safe for concurrent use. Callers own the
// serialization of operations on it.
type Controller struct {
	stream Stream
	sink   AudioSink
	logger *slog.Logger

	state    State
	speed    float64
	stepping bool
	volume   float64
	hasMedia bool
	path     string
	info     StreamInfo
}

func NewController(stream Stream, sink AudioSink, logger *slog.Logger) *Controller {
	return &Controller{
		stream: stream,
		sink:   sink,
		logger: logger,
		speed:  1,
		volume: 1,
	}
}

// playsAtForwardRate reports whether the stream would present at normal
// speed in the forward direction: the rate is within one epsilon of 1.0,
// positive, and the controller is not in stepping mode. Audio is
// delivered only under these conditions.
func (c *Controller) playsAtForwardRate() bool {
	return !c.stepping && c.speed > 0 && math.Abs(c.speed-1) <= speedEpsilon
}

// Open stops delivery and replaces the current source. On failure the
// controller keeps no trace of the attempted source and stays stopped.
func (c *Controller) Open(path string, hints FormatHints) error {
	c.stream.Stop()
	c.state = StateStopped

	info, err := c.stream.Open(path, hints)
	if err != nil {
		c.hasMedia = false
		c.path = ""
		c.info = StreamInfo{}
		c.logger.Error("unable to open media", "path", path, "error", err)
		return fmt.Errorf("failed to open media: %w", err)
	}

	c.hasMedia = true
	c.path = path
	c.info = info
	// show the first frame so a freshly opened stream is never blank
	c.stream.NextFrame()

	return nil
}

// Play leaves stepping mode and starts delivery. Audio starts only when
// the current rate qualifies as forward 1x; video starts regardless.
func (c *Controller) Play() {
	// the stepping flag must be cleared before the forward-rate check
	// reads it, or the first resume after stepping stays silent
	c.stepping = false

	if c.playsAtForwardRate() {
		c.logger.Debug("starting audio delivery")
		c.stream.StartAudio()
	}

	c.logger.Debug("starting video delivery")
	c.stream.StartVideo()
	c.state = StatePlaying
}

// Stop halts all delivery. It does not leave stepping mode: a later Step
// resumes frame-by-frame advancement without repeating its entry work.
func (c *Controller) Stop() {
	c.logger.Debug("stopping delivery")
	c.stream.Stop()
	c.state = StateStopped
}

// Step advances exactly one frame. The first call after leaving normal
// playback additionally disables stream audio, halts delivery and arms
// the video path; repeated calls only request the next frame.
func (c *Controller) Step() {
	if !c.stepping {
		c.logger.Debug("entering stepping mode")
		c.stream.SetSoundEnabled(false)
		c.stream.Stop()
		c.stream.ArmVideo()
		c.stepping = true
	}

	c.state = StateStepping
	c.stream.NextFrame()
}

// SetSpeed applies a new playback rate. A rate of zero (within epsilon)
// stops delivery before anything else. The stream sees the new rate
// before the audio gate runs, and audio is then started or stopped
// according to whether the result is forward 1x playback.
func (c *Controller) SetSpeed(speed float64) {
	c.logger.Debug("setting speed", "speed", speed)
	c.speed = speed

	if math.Abs(speed) < speedEpsilon {
		c.Stop()
	}

	c.stream.SetRate(speed)

	if c.playsAtForwardRate() {
		c.stream.StartAudio()
	} else {
		c.stream.StopAudio()
	}
}

// Seek repositions the stream and forces the frame at the new position
// onto the display: the stale buffered frame is dropped, the video path
// re-armed, and one frame requested.
func (c *Controller) Seek(seconds float64) {
	c.logger.Debug("seeking", "position", seconds)
	c.stream.Seek(seconds)
	c.stream.DropFrame()
	c.stream.ArmVideo()
	c.stream.NextFrame()
}

// Rewind repositions to the start of the stream, or to the end when
// playing in reverse.
func (c *Controller) Rewind() {
	c.logger.Debug("rewinding")
	c.stream.Rewind()
}

// Reset stops delivery, restores the viewport to the native frame
// bounds and restarts. The restart happens even when the viewport
// restore fails; that failure is logged, not surfaced.
func (c *Controller) Reset() {
	c.stream.Stop()

	width, height := c.stream.Bounds()
	if err := c.stream.SetViewport(0, 0, width, height); err != nil {
		c.logger.Error("unable to restore viewport", "error", err)
	}

	c.stream.Start()
	c.state = StatePlaying
}

// SetVolume forwards the level to the audio sink. It has no effect on
// the delivery state machine.
func (c *Controller) SetVolume(level float64) {
	c.volume = level
	c.sink.SetVolume(level)
}

// Close halts delivery for teardown. The controller ends stopped and
// must not be used afterwards.
func (c *Controller) Close() {
	c.stream.Stop()
	c.state = StateStopped
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Speed() float64 {
	return c.speed
}

func (c *Controller) IsStepping() bool {
	return c.stepping
}

func (c *Controller) Volume() float64 {
	return c.volume
}

func (c *Controller) HasMedia() bool {
	return c.hasMedia
}

func (c *Controller) MediaPath() string {
	return c.path
}

func (c *Controller) Info() StreamInfo {
	return c.info
}

func (c *Controller) Position() float64 {
	return c.stream.Position()
}

func (c *Controller) Duration() float64 {
	return c.stream.Duration()
}
