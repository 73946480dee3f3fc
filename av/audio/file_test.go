package audio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAV_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	buf := &Buffer{
		Samples: [][]float64{
			{0, 0.5, -0.5, 0.25, -1},
			{0.125, -0.125, 0.75, -0.75, 0},
		},
		SampleRate: 44100,
	}
	require.NoError(t, WriteWAV(path, buf))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumChannels())
	assert.Equal(t, 44100, got.SampleRate)
	assert.Equal(t, 16, got.BitDepth)
	for ch := range buf.Samples {
		assert.InDeltaSlice(t, buf.Samples[ch], got.Samples[ch], 1.0/32768)
	}
}

func TestWAV_WriteClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, WriteWAV(path, NewMonoBuffer([]float64{2, -2}, 8000)))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{32767.0 / 32768, -1}, got.Samples[0], 1e-12)
}

func TestWriteWAV_Empty(t *testing.T) {
	err := WriteWAV(filepath.Join(t.TempDir(), "x.wav"), &Buffer{SampleRate: 8000})
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("song.mp3")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadWAV_Missing(t *testing.T) {
	_, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestDenormalize16(t *testing.T) {
	assert.Equal(t, 0, denormalize16(0))
	assert.Equal(t, 16384, denormalize16(0.5))
	assert.Equal(t, 32767, denormalize16(1.5))
	assert.Equal(t, -32768, denormalize16(-1))
	assert.InDelta(t, 0.5, normalize(16384, 16), 1e-12)
	assert.InDelta(t, -1.0, normalize(-128, 8), 1e-12)
}
