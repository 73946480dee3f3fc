package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sample file errors.
var (
	// ErrUnsupportedFormat indicates a file type or encoding the loader
	// cannot read.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyAudio indicates a file without channels.
	ErrEmptyAudio = errors.New("audio file has no channels")
)

// ReadFile loads a whole sample file, choosing the decoder by extension.
func ReadFile(path string) (*Buffer, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return ReadWAV(path)
	case ".flac":
		return ReadFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// normalize converts a signed integer sample of the given bit depth to
// [-1, 1).
func normalize(v int, bitDepth int) float64 {
	return float64(v) / float64(int64(1)<<(bitDepth-1))
}

// denormalize16 converts a float sample to 16-bit PCM with clipping.
func denormalize16(v float64) int {
	s := int(v * 32768)
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}
