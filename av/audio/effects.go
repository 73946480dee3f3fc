// Package audio provides audio processing capabilities for the scrambler.
//
// This file implements the effects that make up the audio scramble: the
// Gaussian low-pass filter and the sinusoidal amplitude modulation. Effects
// operate on one channel of normalized float64 samples.
package audio

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrInvalidSampleRate indicates a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("sample rate must be positive")

// AudioEffect defines the interface for audio processing effects.
//
// Effects process one channel of normalized samples in-place or return new
// samples. They can be chained together in an EffectChain.
type AudioEffect interface {
	// Process applies the effect to the samples of one channel
	Process(samples []float64) ([]float64, error)

	// GetName returns a human-readable name for the effect
	GetName() string

	// Close releases any resources used by the effect
	Close() error
}

// LowPassEffect applies a causal FIR low-pass filter.
type LowPassEffect struct {
	weights []float64
}

// NewLowPassEffect creates a low-pass effect over the given kernel. A nil
// kernel selects GaussianKernel.
func NewLowPassEffect(weights []float64) *LowPassEffect {
	if weights == nil {
		weights = GaussianKernel()
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewLowPassEffect",
		"taps":     len(weights),
	}).Debug("Creating low-pass effect")

	return &LowPassEffect{weights: weights}
}

// Process returns the filtered samples. The input slice is not modified.
func (l *LowPassEffect) Process(samples []float64) ([]float64, error) {
	logrus.WithFields(logrus.Fields{
		"function":     "LowPassEffect.Process",
		"sample_count": len(samples),
		"taps":         len(l.weights),
	}).Debug("Filtering audio samples")

	return LowPass(samples, l.weights), nil
}

// GetName returns the effect name for debugging and logging.
func (l *LowPassEffect) GetName() string {
	return fmt.Sprintf("LowPass(%d)", len(l.weights))
}

// Close releases resources (none for the low-pass effect).
func (l *LowPassEffect) Close() error {
	return nil
}

// ModulationEffect multiplies samples by a ModulationFrequency sinusoid.
type ModulationEffect struct {
	sampleRate float64
}

// NewModulationEffect creates a modulation effect for audio sampled at
// sampleRate Hz.
func NewModulationEffect(sampleRate float64) (*ModulationEffect, error) {
	if sampleRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewModulationEffect",
			"sample_rate": sampleRate,
			"error":       "sample rate must be positive",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	return &ModulationEffect{sampleRate: sampleRate}, nil
}

// Process modulates samples in place and returns them.
func (m *ModulationEffect) Process(samples []float64) ([]float64, error) {
	logrus.WithFields(logrus.Fields{
		"function":     "ModulationEffect.Process",
		"sample_count": len(samples),
		"sample_rate":  m.sampleRate,
		"frequency":    ModulationFrequency,
	}).Debug("Modulating audio samples")

	Modulate(samples, m.sampleRate)
	return samples, nil
}

// GetName returns the effect name for debugging and logging.
func (m *ModulationEffect) GetName() string {
	return fmt.Sprintf("Modulation(%.0fHz@%.0f)", ModulationFrequency, m.sampleRate)
}

// Close releases resources (none for the modulation effect).
func (m *ModulationEffect) Close() error {
	return nil
}

// EffectChain manages a sequence of audio effects.
//
// Processes audio through multiple effects in order. Error handling stops
// processing and returns the error immediately.
type EffectChain struct {
	effects []AudioEffect
}

// NewEffectChain creates a chain over the given effects.
func NewEffectChain(effects ...AudioEffect) *EffectChain {
	return &EffectChain{
		effects: append(make([]AudioEffect, 0, len(effects)), effects...),
	}
}

// AddEffect adds an effect to the end of the processing chain.
func (e *EffectChain) AddEffect(effect AudioEffect) {
	logrus.WithFields(logrus.Fields{
		"function":     "EffectChain.AddEffect",
		"effect_name":  effect.GetName(),
		"new_position": len(e.effects),
	}).Debug("Adding effect to audio chain")

	e.effects = append(e.effects, effect)
}

// Process applies all effects in the chain sequentially.
func (e *EffectChain) Process(samples []float64) ([]float64, error) {
	logrus.WithFields(logrus.Fields{
		"function":     "EffectChain.Process",
		"sample_count": len(samples),
		"effect_count": len(e.effects),
	}).Debug("Processing audio through effect chain")

	current := samples
	for i, effect := range e.effects {
		processed, err := effect.Process(current)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "EffectChain.Process",
				"effect_index": i,
				"effect_name":  effect.GetName(),
				"error":        err.Error(),
			}).Error("Effect processing failed")
			return nil, fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
		current = processed
	}

	return current, nil
}

// GetEffectCount returns the number of effects in the chain.
func (e *EffectChain) GetEffectCount() int {
	return len(e.effects)
}

// GetEffectNames returns the names of all effects in the chain.
func (e *EffectChain) GetEffectNames() []string {
	names := make([]string, len(e.effects))
	for i, effect := range e.effects {
		names[i] = effect.GetName()
	}
	return names
}

// Clear closes and removes all effects from the chain.
func (e *EffectChain) Clear() error {
	var errs []error
	for i, effect := range e.effects {
		if err := effect.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "EffectChain.Clear",
				"effect_index": i,
				"effect_name":  effect.GetName(),
				"error":        err.Error(),
			}).Error("Failed to close effect")
			errs = append(errs, fmt.Errorf("effect %d (%s) close failed: %w", i, effect.GetName(), err))
		}
	}
	e.effects = e.effects[:0]
	return errors.Join(errs...)
}
