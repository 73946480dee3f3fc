package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestGaussianKernel(t *testing.T) {
	w := GaussianKernel()
	require.Len(t, w, KernelLength)

	sum := 0.0
	for i, v := range w {
		assert.Greater(t, v, 0.0, "weight %d must be strictly positive", i)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, tolerance)

	center := KernelLength / 2
	for d := 1; d < center; d++ {
		assert.InDelta(t, w[center-d], w[center+d], 1e-15, "asymmetric at distance %d", d)
	}
	for i := range w {
		if i != center {
			assert.Less(t, w[i], w[center])
		}
	}
}

func TestGaussianKernel_Formula(t *testing.T) {
	w := GaussianKernel()
	raw := make([]float64, KernelLength)
	total := 0.0
	for i := range raw {
		d := float64(i - 22)
		raw[i] = math.Exp(-d * d / 2)
		total += raw[i]
	}
	for i := range w {
		assert.InDelta(t, raw[i]/total, w[i], 1e-15)
	}
}

func TestLowPass_SteadyState(t *testing.T) {
	for _, c := range []float64{1, -0.5, 0.25, 0} {
		samples := make([]float64, 500)
		for i := range samples {
			samples[i] = c
		}
		out := LowPass(samples, GaussianKernel())
		require.Len(t, out, len(samples))
		for i := KernelLength - 1; i < len(out); i++ {
			assert.InDelta(t, c, out[i], tolerance, "index %d", i)
		}
	}
}

func TestLowPass_PartialWindow(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	weights := []float64{0.5, 0.25, 0.25}

	out := LowPass(samples, weights)
	assert.InDeltaSlice(t, []float64{
		0.5,
		1*0.25 + 2*0.5,
		1*0.25 + 2*0.25 + 3*0.5,
		2*0.25 + 3*0.25 + 4*0.5,
	}, out, tolerance)
	assert.Equal(t, []float64{1, 2, 3, 4}, samples, "input must not be modified")
}

func TestLowPass_Empty(t *testing.T) {
	assert.Empty(t, LowPass(nil, GaussianKernel()))
	assert.Equal(t, []float64{0, 0}, LowPass([]float64{1, 2}, nil))
}

func TestModulate(t *testing.T) {
	const rate = 44100.0
	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = 1
	}
	Modulate(samples, rate)

	for i, v := range samples {
		want := math.Sin(2 * math.Pi * ModulationFrequency * float64(i) / rate)
		assert.InDelta(t, want, v, tolerance, "index %d", i)
	}
	assert.Zero(t, samples[0])
}

func TestModulate_InPlaceScaling(t *testing.T) {
	samples := []float64{0.5, -0.5, 0.25}
	Modulate(samples, 51200) // four samples per carrier period
	assert.InDeltaSlice(t, []float64{0, -0.5, 0}, samples, tolerance)
}
