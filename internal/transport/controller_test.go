package transport

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	calls       []string
	openErr     error
	viewportErr error
	info        StreamInfo

	rate     float64
	soundOn  bool
	position float64
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		info:    StreamInfo{Duration: 60, Width: 640, Height: 480},
		soundOn: true,
	}
}

func (f *fakeStream) record(op string) {
	f.calls = append(f.calls, op)
}

func (f *fakeStream) reset() {
	f.calls = nil
}

func (f *fakeStream) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeStream) Open(path string, hints FormatHints) (StreamInfo, error) {
	f.record("open")
	if f.openErr != nil {
		return StreamInfo{}, f.openErr
	}
	return f.info, nil
}

func (f *fakeStream) Stop()       { f.record("stop") }
func (f *fakeStream) Start()      { f.record("start") }
func (f *fakeStream) StartAudio() { f.record("start_audio") }
func (f *fakeStream) StopAudio()  { f.record("stop_audio") }
func (f *fakeStream) StartVideo() { f.record("start_video") }
func (f *fakeStream) StopVideo()  { f.record("stop_video") }
func (f *fakeStream) ArmVideo()   { f.record("arm_video") }

func (f *fakeStream) SetSoundEnabled(enabled bool) {
	f.record("set_sound")
	f.soundOn = enabled
}

func (f *fakeStream) SetRate(rate float64) {
	f.record("set_rate")
	f.rate = rate
}

func (f *fakeStream) NextFrame() { f.record("next_frame") }
func (f *fakeStream) DropFrame() { f.record("drop_frame") }

func (f *fakeStream) Seek(seconds float64) {
	f.record("seek")
	f.position = seconds
}

func (f *fakeStream) Rewind() { f.record("rewind") }

func (f *fakeStream) Position() float64 { return f.position }
func (f *fakeStream) Duration() float64 { return f.info.Duration }

func (f *fakeStream) Bounds() (int, int) {
	return f.info.Width, f.info.Height
}

func (f *fakeStream) SetViewport(x, y, width, height int) error {
	f.record("set_viewport")
	return f.viewportErr
}

type fakeSink struct {
	levels []float64
}

func (f *fakeSink) SetVolume(level float64) {
	f.levels = append(f.levels, level)
}

func newTestController() (*Controller, *fakeStream, *fakeSink) {
	stream := newFakeStream()
	sink := &fakeSink{}
	return NewController(stream, sink, slog.Default()), stream, sink
}

func TestControllerOpen(t *testing.T) {
	t.Run("stops, opens and shows the first frame", func(t *testing.T) {
		c, stream, _ := newTestController()

		err := c.Open("/media/session.mp4", FormatHints{})
		require.NoError(t, err)

		assert.Equal(t, []string{"stop", "open", "next_frame"}, stream.calls)
		assert.True(t, c.HasMedia())
		assert.Equal(t, "/media/session.mp4", c.MediaPath())
		assert.Equal(t, StreamInfo{Duration: 60, Width: 640, Height: 480}, c.Info())
		assert.Equal(t, StateStopped, c.State())
	})

	t.Run("failure keeps no media state", func(t *testing.T) {
		c, stream, _ := newTestController()
		stream.openErr = errors.New("unsupported container")

		err := c.Open("/media/broken.bin", FormatHints{})
		require.Error(t, err)
		require.ErrorIs(t, err, stream.openErr)

		assert.Equal(t, []string{"stop", "open"}, stream.calls)
		assert.False(t, c.HasMedia())
		assert.Empty(t, c.MediaPath())
		assert.Equal(t, StreamInfo{}, c.Info())
		assert.Equal(t, StateStopped, c.State())
	})

	t.Run("failure after a successful open clears the old source", func(t *testing.T) {
		c, stream, _ := newTestController()
		require.NoError(t, c.Open("/media/first.mp4", FormatHints{}))

		stream.openErr = errors.New("read error")
		require.Error(t, c.Open("/media/second.mp4", FormatHints{}))

		assert.False(t, c.HasMedia())
		assert.Empty(t, c.MediaPath())
	})
}

func TestControllerPlay(t *testing.T) {
	t.Run("starts audio before video at forward 1x", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.Play()

		assert.Equal(t, []string{"start_audio", "start_video"}, stream.calls)
		assert.Equal(t, StatePlaying, c.State())
	})

	t.Run("skips audio at other rates", func(t *testing.T) {
		tests := []struct {
			name  string
			speed float64
		}{
			{"double speed", 2},
			{"half speed", 0.5},
			{"reverse 1x", -1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, stream, _ := newTestController()
				c.SetSpeed(tt.speed)
				stream.reset()

				c.Play()

				assert.Equal(t, []string{"start_video"}, stream.calls)
				assert.Equal(t, StatePlaying, c.State())
			})
		}
	})

	t.Run("leaving stepping mode restores audio", func(t *testing.T) {
		c, stream, _ := newTestController()
		c.Step()
		stream.reset()

		c.Play()

		assert.Equal(t, []string{"start_audio", "start_video"}, stream.calls)
		assert.False(t, c.IsStepping())
		assert.Equal(t, StatePlaying, c.State())
	})
}

func TestControllerStep(t *testing.T) {
	t.Run("first step runs entry work once", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.Step()

		assert.Equal(t, []string{"set_sound", "stop", "arm_video", "next_frame"}, stream.calls)
		assert.False(t, stream.soundOn)
		assert.True(t, c.IsStepping())
		assert.Equal(t, StateStepping, c.State())
	})

	t.Run("repeated steps only advance frames", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.Step()
		c.Step()
		c.Step()

		assert.Equal(t, 1, stream.count("set_sound"))
		assert.Equal(t, 1, stream.count("stop"))
		assert.Equal(t, 1, stream.count("arm_video"))
		assert.Equal(t, 3, stream.count("next_frame"))
	})

	t.Run("stepping survives an intervening stop", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.Step()
		c.Stop()
		stream.reset()

		c.Step()

		assert.Equal(t, []string{"next_frame"}, stream.calls)
		assert.Equal(t, StateStepping, c.State())
	})
}

func TestControllerSetSpeed(t *testing.T) {
	t.Run("audio gate", func(t *testing.T) {
		tests := []struct {
			name      string
			speed     float64
			wantAudio bool
		}{
			{"forward 1x", 1, true},
			{"one ulp above 1x", 1 + 0x1p-52, true},
			{"two ulps above 1x", 1 + 0x1p-51, false},
			{"double speed", 2, false},
			{"half speed", 0.5, false},
			{"reverse 1x", -1, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, stream, _ := newTestController()

				c.SetSpeed(tt.speed)

				if tt.wantAudio {
					assert.Equal(t, []string{"set_rate", "start_audio"}, stream.calls)
				} else {
					assert.Equal(t, []string{"set_rate", "stop_audio"}, stream.calls)
				}
				assert.Equal(t, tt.speed, stream.rate)
				assert.Equal(t, tt.speed, c.Speed())
			})
		}
	})

	t.Run("zero stops delivery before the rate change", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.SetSpeed(0)

		assert.Equal(t, []string{"stop", "set_rate", "stop_audio"}, stream.calls)
		assert.Equal(t, StateStopped, c.State())
	})

	t.Run("below epsilon counts as zero", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.SetSpeed(0x1p-53)

		assert.Equal(t, []string{"stop", "set_rate", "stop_audio"}, stream.calls)
	})

	t.Run("small negative rates keep playing", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.SetSpeed(-0.5)

		assert.Equal(t, []string{"set_rate", "stop_audio"}, stream.calls)
		assert.Equal(t, -0.5, stream.rate)
	})

	t.Run("forward 1x while stepping stays silent", func(t *testing.T) {
		c, stream, _ := newTestController()
		c.Step()
		stream.reset()

		c.SetSpeed(1)

		assert.Equal(t, []string{"set_rate", "stop_audio"}, stream.calls)
	})
}

func TestControllerSeek(t *testing.T) {
	c, stream, _ := newTestController()

	c.Seek(12.5)

	assert.Equal(t, []string{"seek", "drop_frame", "arm_video", "next_frame"}, stream.calls)
	assert.Equal(t, 12.5, stream.position)
}

func TestControllerReset(t *testing.T) {
	t.Run("restores the native viewport and restarts", func(t *testing.T) {
		c, stream, _ := newTestController()

		c.Reset()

		assert.Equal(t, []string{"stop", "set_viewport", "start"}, stream.calls)
		assert.Equal(t, StatePlaying, c.State())
	})

	t.Run("restarts even when the viewport restore fails", func(t *testing.T) {
		c, stream, _ := newTestController()
		stream.viewportErr = ErrViewportBounds

		c.Reset()

		assert.Equal(t, []string{"stop", "set_viewport", "start"}, stream.calls)
		assert.Equal(t, StatePlaying, c.State())
	})
}

func TestControllerStop(t *testing.T) {
	c, stream, _ := newTestController()
	c.Play()
	stream.reset()

	c.Stop()

	assert.Equal(t, []string{"stop"}, stream.calls)
	assert.Equal(t, StateStopped, c.State())
}

func TestControllerRewind(t *testing.T) {
	c, stream, _ := newTestController()

	c.Rewind()

	assert.Equal(t, []string{"rewind"}, stream.calls)
}

func TestControllerSetVolume(t *testing.T) {
	c, _, sink := newTestController()

	c.SetVolume(0.25)

	assert.Equal(t, []float64{0.25}, sink.levels)
	assert.Equal(t, 0.25, c.Volume())
}

func TestControllerClose(t *testing.T) {
	c, stream, _ := newTestController()
	c.Play()
	stream.reset()

	c.Close()

	assert.Equal(t, []string{"stop"}, stream.calls)
	assert.Equal(t, StateStopped, c.State())
}
