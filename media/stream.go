package media

import (
	"errors"
	"fmt"

	"github.com/opd-ai/avscramble/av/video"
)

// Boundary errors.
var (
	// ErrOpenSource indicates a capture device or input file could not be
	// opened.
	ErrOpenSource = errors.New("cannot open frame source")

	// ErrOpenSink indicates an output writer could not be opened.
	ErrOpenSink = errors.New("cannot open frame sink")

	// ErrClosed indicates use of a closed source or sink.
	ErrClosed = errors.New("stream closed")

	// ErrUnknownBackend indicates a backend name that is not registered.
	ErrUnknownBackend = errors.New("unknown media backend")
)

// StreamInfo describes a video stream.
type StreamInfo struct {
	Width    int
	Height   int
	Channels int
	FPS      float64
}

// FrameSize returns the number of bytes in one frame.
func (s StreamInfo) FrameSize() int {
	return s.Width * s.Height * s.Channels
}

// String renders the geometry as WxHxC@fps.
func (s StreamInfo) String() string {
	return fmt.Sprintf("%dx%dx%d@%.2f", s.Width, s.Height, s.Channels, s.FPS)
}

// FrameSource produces frames in presentation order.
type FrameSource interface {
	// Info describes the frames returned by Read.
	Info() StreamInfo
	// Read returns the next frame, or io.EOF after the last one.
	Read() (*video.Frame, error)
	// Close releases the source. It is safe to call more than once.
	Close() error
}

// FrameSink consumes frames.
type FrameSink interface {
	// Write appends a frame. The sink does not retain the frame.
	Write(frame *video.Frame) error
	// Close flushes and releases the sink. It is safe to call more than
	// once.
	Close() error
}
