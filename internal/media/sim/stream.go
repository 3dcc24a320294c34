// Package sim provides a clock-driven stand-in for a real decode
// backend. Position advances against the wall clock at the configured
// rate while video delivery runs, which is enough to exercise every
// transport operation without decoding anything.
package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/clamp"
)

type Option func(*Stream)

// WithFrameRate sets the simulated frame rate in frames per second.
func WithFrameRate(fps float64) Option {
	return func(s *Stream) {
		s.frameRate = fps
	}
}

// WithDuration sets the simulated stream length in seconds.
func WithDuration(seconds float64) Option {
	return func(s *Stream) {
		s.duration = seconds
	}
}

// WithBounds sets the native frame bounds in pixels.
func WithBounds(width, height int) Option {
	return func(s *Stream) {
		s.width = width
		s.height = height
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Stream) {
		s.now = now
	}
}

// WithOpenError makes every Open fail, for exercising failure paths.
func WithOpenError(err error) Option {
	return func(s *Stream) {
		s.openErr = err
	}
}

// Stream implements transport.Stream over a wall clock.
type Stream struct {
	logger *slog.Logger
	now    func() time.Time

	frameRate float64
	duration  float64
	width     int
	height    int
	openErr   error

	open         bool
	path         string
	rate         float64
	soundEnabled bool
	audioOn      bool
	videoOn      bool
	videoArmed   bool
	// queued is set while a decode at the current position is pending:
	// after an open, seek or rewind, the next frame delivered is the one
	// at that position, not the one after it
	queued bool

	// basePos is the position at the anchor instant; while video runs,
	// elapsed time since the anchor accrues on top of it at the rate
	basePos float64
	anchor  time.Time

	viewX, viewY, viewW, viewH int

	framesDelivered int
	framesDropped   int
}

func New(logger *slog.Logger, opts ...Option) *Stream {
	s := &Stream{
		logger:       logger,
		now:          time.Now,
		frameRate:    30,
		duration:     60,
		width:        640,
		height:       480,
		rate:         1,
		soundEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.viewW = s.width
	s.viewH = s.height
	s.anchor = s.now()

	return s
}

func (s *Stream) Open(path string, hints transport.FormatHints) (transport.StreamInfo, error) {
	if s.openErr != nil {
		return transport.StreamInfo{}, s.openErr
	}

	s.open = true
	s.path = path
	s.basePos = 0
	s.anchor = s.now()
	s.audioOn = false
	s.videoOn = false
	s.videoArmed = false
	s.queued = true
	s.viewX, s.viewY = 0, 0
	s.viewW, s.viewH = s.width, s.height

	s.logger.Debug("media opened", "path", path, "pixelFormat", hints.PixelFormat)

	return transport.StreamInfo{
		Duration: s.duration,
		Width:    s.width,
		Height:   s.height,
	}, nil
}

// freeze folds the elapsed clock time into basePos so that a rate or
// delivery change does not retroactively rescale it.
func (s *Stream) freeze() {
	s.basePos = s.Position()
	s.anchor = s.now()
}

func (s *Stream) Stop() {
	s.freeze()
	s.audioOn = false
	s.videoOn = false
	s.videoArmed = false
}

func (s *Stream) Start() {
	if !s.videoOn {
		s.anchor = s.now()
		s.videoOn = true
	}
	s.videoArmed = true
	s.audioOn = true
}

func (s *Stream) StartAudio() {
	s.audioOn = true
}

func (s *Stream) StopAudio() {
	s.audioOn = false
}

func (s *Stream) StartVideo() {
	if s.videoOn {
		return
	}
	s.anchor = s.now()
	s.videoOn = true
	s.videoArmed = true
}

func (s *Stream) StopVideo() {
	s.freeze()
	s.videoOn = false
}

func (s *Stream) ArmVideo() {
	s.videoArmed = true
}

func (s *Stream) SetSoundEnabled(enabled bool) {
	s.soundEnabled = enabled
}

func (s *Stream) SetRate(rate float64) {
	s.freeze()
	s.rate = rate
}

func (s *Stream) NextFrame() {
	s.freeze()

	if s.queued {
		s.queued = false
		s.framesDelivered++
		return
	}

	step := 1 / s.frameRate
	if s.rate < 0 {
		step = -step
	}
	s.basePos = clamp.Clamp(s.basePos+step, 0, s.duration)
	s.framesDelivered++
}

func (s *Stream) DropFrame() {
	s.framesDropped++
}

func (s *Stream) Seek(seconds float64) {
	s.freeze()
	s.basePos = clamp.Clamp(seconds, 0, s.duration)
	s.queued = true
}

func (s *Stream) Rewind() {
	s.freeze()
	if s.rate < 0 {
		s.basePos = s.duration
	} else {
		s.basePos = 0
	}
	s.queued = true
}

func (s *Stream) Position() float64 {
	pos := s.basePos
	if s.videoOn {
		pos += s.now().Sub(s.anchor).Seconds() * s.rate
	}
	return clamp.Clamp(pos, 0, s.duration)
}

func (s *Stream) Duration() float64 {
	return s.duration
}

func (s *Stream) Bounds() (int, int) {
	return s.width, s.height
}

func (s *Stream) SetViewport(x, y, width, height int) error {
	if x < 0 || y < 0 || x+width > s.width || y+height > s.height {
		return fmt.Errorf("%dx%d at (%d,%d) in a %dx%d frame: %w",
			width, height, x, y, s.width, s.height, transport.ErrViewportBounds)
	}

	s.viewX, s.viewY = x, y
	s.viewW, s.viewH = width, height

	return nil
}

func (s *Stream) IsOpen() bool {
	return s.open
}

func (s *Stream) Path() string {
	return s.path
}

func (s *Stream) Rate() float64 {
	return s.rate
}

func (s *Stream) SoundEnabled() bool {
	return s.soundEnabled
}

func (s *Stream) AudioRunning() bool {
	return s.audioOn
}

// Audible reports whether audio would actually be heard: delivery is
// running and stream-level sound is enabled.
func (s *Stream) Audible() bool {
	return s.audioOn && s.soundEnabled
}

func (s *Stream) VideoRunning() bool {
	return s.videoOn
}

func (s *Stream) VideoArmed() bool {
	return s.videoArmed
}

func (s *Stream) Viewport() (x, y, width, height int) {
	return s.viewX, s.viewY, s.viewW, s.viewH
}

func (s *Stream) FramesDelivered() int {
	return s.framesDelivered
}

func (s *Stream) FramesDropped() int {
	return s.framesDropped
}
