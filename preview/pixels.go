package preview

import (
	"fmt"

	"github.com/opd-ai/avscramble/av/video"
)

// Pane labels, left to right.
var paneLabels = [3]string{"Original", "Encoded", "Decoded"}

// toRGBA converts a BGR, BGRA or grayscale frame to RGBA, reusing dst when
// it is large enough.
func toRGBA(dst []byte, f *video.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return dst, err
	}
	n := f.Width * f.Height
	if cap(dst) < 4*n {
		dst = make([]byte, 4*n)
	}
	dst = dst[:4*n]

	src := f.Data
	switch f.Channels {
	case 1:
		for i := 0; i < n; i++ {
			v := src[i]
			dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = v, v, v, 0xff
		}
	case 3:
		for i := 0; i < n; i++ {
			dst[4*i] = src[3*i+2]
			dst[4*i+1] = src[3*i+1]
			dst[4*i+2] = src[3*i]
			dst[4*i+3] = 0xff
		}
	case 4:
		for i := 0; i < n; i++ {
			dst[4*i] = src[4*i+2]
			dst[4*i+1] = src[4*i+1]
			dst[4*i+2] = src[4*i]
			dst[4*i+3] = src[4*i+3]
		}
	default:
		return dst, fmt.Errorf("%w: %d channels", video.ErrInvalidFrame, f.Channels)
	}
	return dst, nil
}

// Largest pane size; bigger frames are scaled down to fit.
const (
	maxPaneWidth  = 640
	maxPaneHeight = 480
)

// paneFrames validates the triple and scales it down to the pane size.
func paneFrames(s *video.Scaler, frames [3]*video.Frame) ([3]*video.Frame, error) {
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return frames, err
		}
	}
	src := frames[0]
	width, height := s.FitWithin(src.Width, src.Height, maxPaneWidth, maxPaneHeight)
	if !s.IsScalingRequired(src.Width, src.Height, width, height) {
		return frames, nil
	}
	var out [3]*video.Frame
	for i, f := range frames {
		scaled, err := s.Scale(f, width, height)
		if err != nil {
			return frames, err
		}
		out[i] = scaled
	}
	return out, nil
}
