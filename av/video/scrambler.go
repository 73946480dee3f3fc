package video

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/key"
)

// ErrUnknownDirection indicates a direction name that is neither "encode"
// nor "decode".
var ErrUnknownDirection = errors.New("unknown scramble direction")

// Direction selects scrambling or unscrambling.
type Direction uint8

const (
	// Encode moves row i to Forward(i).
	Encode Direction = iota
	// Decode moves row i to Inverse(i), undoing Encode.
	Decode
)

// String returns "encode" or "decode".
func (d Direction) String() string {
	switch d {
	case Encode:
		return "encode"
	case Decode:
		return "decode"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection parses "encode" or "decode".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "encode":
		return Encode, nil
	case "decode":
		return Decode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Scrambler moves whole rows between frames according to a Cipher.
type Scrambler struct {
	cipher *Cipher
}

// NewScrambler creates a scrambler with its own cipher for k.
func NewScrambler(k key.Key) *Scrambler {
	return NewScramblerWithCipher(NewCipher(k))
}

// NewScramblerWithCipher creates a scrambler sharing an existing cipher and
// its caches.
func NewScramblerWithCipher(c *Cipher) *Scrambler {
	return &Scrambler{cipher: c}
}

// Cipher returns the underlying cipher.
func (s *Scrambler) Cipher() *Cipher {
	return s.cipher
}

// Scramble copies every row of src into dst at its permuted position. Only
// dst is written. The frames must have identical geometry and must not share
// a buffer.
func (s *Scrambler) Scramble(src, dst *Frame, dir Direction) error {
	if src == nil || dst == nil {
		return ErrNilFrame
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !src.SameGeometry(dst) {
		logrus.WithFields(logrus.Fields{
			"function":   "Scrambler.Scramble",
			"src_width":  src.Width,
			"src_height": src.Height,
			"dst_width":  dst.Width,
			"dst_height": dst.Height,
			"error":      "frame size mismatch",
		}).Error("Frame dimension validation failed")
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrFrameMismatch,
			src.Width, src.Height, src.Channels, dst.Width, dst.Height, dst.Channels)
	}
	if len(src.Data) > 0 && &src.Data[0] == &dst.Data[0] {
		return fmt.Errorf("%w: source and destination share a buffer", ErrInvalidFrame)
	}
	if dir != Encode && dir != Decode {
		return fmt.Errorf("%w: %s", ErrUnknownDirection, dir)
	}

	plan := s.cipher.Plan(src.Height)
	for i := 0; i < src.Height; i++ {
		var j int
		if dir == Encode {
			j = plan.Forward(i)
		} else {
			j = plan.Inverse(i)
		}
		copy(dst.Row(j), src.Row(i))
	}
	return nil
}
