package video

import (
	"fmt"
)

// Effect represents a frame transformation that can be applied to frames.
type Effect interface {
	// Apply processes a video frame and returns the modified frame
	Apply(frame *Frame) (*Frame, error)
	// GetName returns the effect name for identification
	GetName() string
}

// EffectChain manages multiple effects applied in sequence.
type EffectChain struct {
	effects []Effect
}

// NewEffectChain creates a new effect processing chain.
func NewEffectChain(effects ...Effect) *EffectChain {
	return &EffectChain{
		effects: append(make([]Effect, 0, len(effects)), effects...),
	}
}

// AddEffect adds an effect to the processing chain.
func (ec *EffectChain) AddEffect(effect Effect) {
	ec.effects = append(ec.effects, effect)
}

// Apply processes a frame through all effects in the chain.
func (ec *EffectChain) Apply(frame *Frame) (*Frame, error) {
	if frame == nil {
		return nil, ErrNilFrame
	}

	// If no effects, return a copy
	if len(ec.effects) == 0 {
		return frame.Clone(), nil
	}

	current := frame
	for i, effect := range ec.effects {
		result, err := effect.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
		current = result
	}

	return current, nil
}

// GetEffectCount returns the number of effects in the chain.
func (ec *EffectChain) GetEffectCount() int {
	return len(ec.effects)
}

// ScrambleEffect applies the row permutation in one direction and returns
// a new frame, leaving the input untouched.
type ScrambleEffect struct {
	scrambler *Scrambler
	direction Direction
}

// NewScrambleEffect wraps a scrambler as an Effect.
func NewScrambleEffect(s *Scrambler, dir Direction) *ScrambleEffect {
	return &ScrambleEffect{scrambler: s, direction: dir}
}

// Apply scrambles frame into a freshly allocated frame.
func (se *ScrambleEffect) Apply(frame *Frame) (*Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	out := NewFrame(frame.Width, frame.Height, frame.Channels)
	if err := se.scrambler.Scramble(frame, out, se.direction); err != nil {
		return nil, err
	}
	return out, nil
}

// GetName returns the effect name.
func (se *ScrambleEffect) GetName() string {
	return fmt.Sprintf("Scramble(%s %s)", se.direction, se.scrambler.Cipher().Key())
}
