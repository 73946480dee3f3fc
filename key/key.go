package key

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxOffset is the largest valid offset (8 bits).
	MaxOffset = 255
	// MaxStep is the largest valid step (7 bits).
	MaxStep = 127
)

// Validation errors returned by New.
var (
	// ErrOffsetOutOfRange indicates an offset outside [0, MaxOffset].
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrStepOutOfRange indicates a step outside [0, MaxStep].
	ErrStepOutOfRange = errors.New("step out of range")
)

// Key is the (offset, step) pair of a scrambling session.
type Key struct {
	Offset int
	Step   int
}

// New returns a validated key.
func New(offset, step int) (Key, error) {
	if offset < 0 || offset > MaxOffset {
		return Key{}, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset)
	}
	if step < 0 || step > MaxStep {
		return Key{}, fmt.Errorf("%w: %d", ErrStepOutOfRange, step)
	}
	return Key{Offset: offset, Step: step}, nil
}

// FromStrings parses a decimal offset and step. It reports false when either
// value does not parse or is out of range.
func FromStrings(offset, step string) (Key, bool) {
	o, err := strconv.Atoi(strings.TrimSpace(offset))
	if err != nil {
		return Key{}, false
	}
	s, err := strconv.Atoi(strings.TrimSpace(step))
	if err != nil {
		return Key{}, false
	}
	k, err := New(o, s)
	if err != nil {
		return Key{}, false
	}
	return k, true
}

// Valid reports whether both components are in range.
func (k Key) Valid() bool {
	return k.Offset >= 0 && k.Offset <= MaxOffset && k.Step >= 0 && k.Step <= MaxStep
}

// Multiplier returns 2*Step+1. It is always odd, which makes it invertible
// modulo any power of two.
func (k Key) Multiplier() int {
	return 2*k.Step + 1
}

// String renders the key as "(offset, step)".
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d)", k.Offset, k.Step)
}
