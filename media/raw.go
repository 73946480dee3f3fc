package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/avscramble/av/video"
)

// RawReader decodes a stream of headerless, back-to-back frames of fixed
// geometry, as produced by ffmpeg's rawvideo muxer.
type RawReader struct {
	r    io.Reader
	info StreamInfo
}

// NewRawReader reads frames of the given geometry from r.
func NewRawReader(r io.Reader, info StreamInfo) *RawReader {
	return &RawReader{r: r, info: info}
}

// ReadFrame returns the next frame. It returns io.EOF at a clean frame
// boundary and io.ErrUnexpectedEOF for a truncated frame.
func (rr *RawReader) ReadFrame() (*video.Frame, error) {
	if rr.info.FrameSize() <= 0 {
		return nil, fmt.Errorf("%w: empty geometry %s", video.ErrInvalidFrame, rr.info)
	}
	frame := video.NewFrame(rr.info.Width, rr.info.Height, rr.info.Channels)
	if _, err := io.ReadFull(rr.r, frame.Data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return frame, nil
}

// RawWriter encodes frames back to back with no framing.
type RawWriter struct {
	w    io.Writer
	info StreamInfo
}

// NewRawWriter writes frames of the given geometry to w.
func NewRawWriter(w io.Writer, info StreamInfo) *RawWriter {
	return &RawWriter{w: w, info: info}
}

// WriteFrame writes one frame, which must match the writer's geometry.
func (rw *RawWriter) WriteFrame(frame *video.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.Width != rw.info.Width || frame.Height != rw.info.Height || frame.Channels != rw.info.Channels {
		return fmt.Errorf("%w: got %dx%dx%d, stream is %s", video.ErrFrameMismatch,
			frame.Width, frame.Height, frame.Channels, rw.info)
	}
	_, err := rw.w.Write(frame.Data)
	return err
}
