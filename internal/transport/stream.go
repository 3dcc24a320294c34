// Package transport drives playback of a single media stream: rate
// changes, frame stepping, seeking, and the audio gating that follows
// from them.
package transport

import "errors"

// ErrViewportBounds is returned by Stream.SetViewport when the requested
// region does not fit inside the stream's native frame bounds.
var ErrViewportBounds = errors.New("viewport outside frame bounds")

// StreamInfo describes an opened stream.
type StreamInfo struct {
	// Duration is the total stream length in seconds.
	Duration float64
	// Width and Height are the native frame bounds in pixels.
	Width  int
	Height int
}

// FormatHints carries the decode preferences a stream backend may honor
// when opening a source. A zero value asks for backend defaults.
type FormatHints struct {
	PixelFormat   string
	AudioChannels int
	SampleRateHz  int
	ClientVersion string
}

// Stream is the delivery backend a Controller drives. Implementations
// decode some media source and deliver frames and audio to listeners;
// the Controller only sequences the calls below and never touches the
// decoded data itself.
//
// Implementations are not required to be safe for concurrent use. The
// Controller calls them from a single goroutine at a time.
type Stream interface {
	// Open replaces the current source. On error the stream must keep
	// no partial state from the failed source.
	Open(path string, hints FormatHints) (StreamInfo, error)

	// Stop halts both audio and video delivery.
	Stop()
	// Start resumes delivery of both audio and video.
	Start()

	StartAudio()
	StopAudio()
	StartVideo()
	StopVideo()
	// ArmVideo readies the video delivery path without starting the
	// presentation clock, so that explicitly requested frames are
	// delivered while the stream is otherwise halted.
	ArmVideo()

	// SetSoundEnabled toggles audio decode at the stream level. It is
	// independent of StartAudio/StopAudio, which control delivery.
	SetSoundEnabled(enabled bool)
	// SetRate sets the playback rate. Negative rates deliver frames in
	// reverse display order.
	SetRate(rate float64)

	// NextFrame delivers exactly one frame in the current direction.
	NextFrame()
	// DropFrame discards the buffered frame without delivering it.
	DropFrame()

	// Seek repositions the stream to the given time in seconds.
	Seek(seconds float64)
	// Rewind repositions to the start, or to the end when the current
	// rate is negative.
	Rewind()

	Position() float64
	Duration() float64
	Bounds() (width, height int)
	SetViewport(x, y, width, height int) error
}

// AudioSink receives volume changes. Volume is a fraction in [0, 1]
// applied on top of whatever gain the stream delivers at.
type AudioSink interface {
	SetVolume(level float64)
}
