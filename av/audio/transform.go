package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Transform is the audio scramble.
//
// Encode low-pass filters the signal and then modulates it. Decode
// low-pass filters the encoded signal twice: once with the stage shared by
// both directions and once with the decode-only pass. The modulation is
// never inverted, so Decode(Encode(x)) is a filtered, still-modulated copy
// of x rather than x itself.
type Transform struct {
	weights []float64
}

// NewTransform creates a transform using the Gaussian kernel.
func NewTransform() *Transform {
	return &Transform{weights: GaussianKernel()}
}

// Weights returns the filter kernel.
func (t *Transform) Weights() []float64 {
	return t.weights
}

// EncodeChain returns the effects applied by Encode for the given rate.
func (t *Transform) EncodeChain(sampleRate int) (*EffectChain, error) {
	mod, err := NewModulationEffect(float64(sampleRate))
	if err != nil {
		return nil, err
	}
	return NewEffectChain(NewLowPassEffect(t.weights), mod), nil
}

// DecodeChain returns the effects applied by Decode.
func (t *Transform) DecodeChain() *EffectChain {
	return NewEffectChain(NewLowPassEffect(t.weights), NewLowPassEffect(t.weights))
}

// Encode scrambles every channel of buf in place.
func (t *Transform) Encode(buf *Buffer) error {
	chain, err := t.EncodeChain(buf.SampleRate)
	if err != nil {
		return err
	}
	return t.apply("Transform.Encode", chain, buf)
}

// Decode applies the decode filter to every channel of buf in place.
func (t *Transform) Decode(buf *Buffer) error {
	return t.apply("Transform.Decode", t.DecodeChain(), buf)
}

func (t *Transform) apply(function string, chain *EffectChain, buf *Buffer) error {
	logrus.WithFields(logrus.Fields{
		"function":     function,
		"channels":     buf.NumChannels(),
		"sample_count": buf.Len(),
		"sample_rate":  buf.SampleRate,
		"effects":      chain.GetEffectNames(),
	}).Info("Transforming audio buffer")

	for ch, samples := range buf.Samples {
		out, err := chain.Process(samples)
		if err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		buf.Samples[ch] = out
	}
	return nil
}
