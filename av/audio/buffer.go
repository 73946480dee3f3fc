package audio

import "time"

// Buffer is a fully materialized, normalized sample buffer.
//
// Samples holds one slice per channel (planar layout); every channel has
// the same length. Values are in [-1, 1).
type Buffer struct {
	Samples    [][]float64
	SampleRate int
	// BitDepth is the bit depth of the source file, informational only.
	BitDepth int
}

// NewMonoBuffer wraps a single channel.
func NewMonoBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{
		Samples:    [][]float64{samples},
		SampleRate: sampleRate,
		BitDepth:   16,
	}
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Samples)
}

// Len returns the number of samples per channel.
func (b *Buffer) Len() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	channels := make([][]float64, len(b.Samples))
	for i, ch := range b.Samples {
		channels[i] = append([]float64(nil), ch...)
	}
	return &Buffer{
		Samples:    channels,
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
	}
}

// interleave returns the samples frame by frame: L0 R0 L1 R1 ...
func (b *Buffer) interleave() []float64 {
	n, channels := b.Len(), b.NumChannels()
	out := make([]float64, n*channels)
	for ch, samples := range b.Samples {
		for i, v := range samples {
			out[i*channels+ch] = v
		}
	}
	return out
}

// deinterleave splits frame-ordered samples into channels.
func deinterleave(data []float64, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}
	n := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, n)
		for i := 0; i < n; i++ {
			out[ch][i] = data[i*channels+ch]
		}
	}
	return out
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.SampleRate)
}
