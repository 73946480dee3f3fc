package video

import (
	"errors"
	"fmt"
)

// Frame validation errors.
var (
	// ErrNilFrame indicates a nil frame argument.
	ErrNilFrame = errors.New("input frame cannot be nil")

	// ErrInvalidFrame indicates inconsistent geometry or a short buffer.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrFrameMismatch indicates source and destination geometry differ.
	ErrFrameMismatch = errors.New("frame size mismatch")
)

// Frame is a row-major pixel buffer with 8 bits per channel.
//
// The cipher treats each row as an opaque block of Width*Channels bytes;
// channel order (BGR, RGB, gray) is irrelevant to it.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Data     []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height, channels int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]byte, width*height*channels),
	}
}

// Stride returns the number of bytes in one row.
func (f *Frame) Stride() int {
	return f.Width * f.Channels
}

// Row returns the bytes of row i. The slice aliases the frame buffer.
func (f *Frame) Row(i int) []byte {
	stride := f.Stride()
	return f.Data[i*stride : (i+1)*stride : (i+1)*stride]
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{
		Width:    f.Width,
		Height:   f.Height,
		Channels: f.Channels,
		Data:     data,
	}
}

// Validate checks that the geometry is non-negative and the buffer holds
// exactly Height rows.
func (f *Frame) Validate() error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width < 0 || f.Height < 0 || f.Channels < 0 {
		return fmt.Errorf("%w: negative geometry %dx%dx%d", ErrInvalidFrame, f.Width, f.Height, f.Channels)
	}
	if want := f.Stride() * f.Height; len(f.Data) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, want %d", ErrInvalidFrame, len(f.Data), want)
	}
	return nil
}

// SameGeometry reports whether two frames have identical dimensions.
func (f *Frame) SameGeometry(other *Frame) bool {
	return f.Width == other.Width && f.Height == other.Height && f.Channels == other.Channels
}
