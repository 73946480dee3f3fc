package audio

import "math"

// ModulationFrequency is the carrier frequency, in Hz, of the amplitude
// scramble.
const ModulationFrequency = 12800.0

// LowPass convolves samples with weights as a causal FIR filter:
//
//	y[i] = sum_{j=0}^{min(i, len(weights)-1)} samples[i-j] * weights[j]
//
// The first len(weights)-1 outputs use a partial window. The input is not
// modified and the output has the same length.
func LowPass(samples, weights []float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		sum := 0.0
		for j := 0; j < len(weights) && j <= i; j++ {
			sum += samples[i-j] * weights[j]
		}
		out[i] = sum
	}
	return out
}

// Modulate multiplies samples in place by a sinusoid at
// ModulationFrequency: samples[i] *= sin(2*pi*F*i/sampleRate).
func Modulate(samples []float64, sampleRate float64) {
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] *= math.Sin(2 * math.Pi * ModulationFrequency * t)
	}
}
