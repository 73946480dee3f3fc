package audio

import "math"

// KernelLength is the number of taps of the low-pass kernel.
const KernelLength = 44

// GaussianKernel returns the KernelLength-tap low-pass kernel
// w[i] = exp(-(i-22)^2 / 2), normalized to sum to 1.
func GaussianKernel() []float64 {
	weights := make([]float64, KernelLength)
	center := KernelLength / 2
	sum := 0.0
	for i := range weights {
		d := float64(i - center)
		weights[i] = math.Exp(-(d * d) / 2)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
