package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

const wavFormatPCM = 1

// ReadWAV loads a PCM WAV file into a normalized buffer.
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV encoding %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}
	bitDepth := int(dec.BitDepth)

	data := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV samples are unsigned.
			v -= 128
		}
		data[i] = normalize(v, bitDepth)
	}

	buf := &Buffer{
		Samples:    deinterleave(data, channels),
		SampleRate: int(dec.SampleRate),
		BitDepth:   bitDepth,
	}

	logrus.WithFields(logrus.Fields{
		"function":     "ReadWAV",
		"path":         path,
		"channels":     channels,
		"sample_rate":  buf.SampleRate,
		"bit_depth":    bitDepth,
		"sample_count": buf.Len(),
	}).Info("WAV file loaded")

	return buf, nil
}

// WriteWAV writes buf as a 16-bit PCM WAV file, preserving its channel
// count and sample rate. Samples outside [-1, 1) are clipped.
func WriteWAV(path string, buf *Buffer) error {
	if buf.NumChannels() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	interleaved := buf.interleave()
	ints := make([]int, len(interleaved))
	clipped := 0
	for i, v := range interleaved {
		ints[i] = denormalize16(v)
		if v >= 1 || v < -1 {
			clipped++
		}
	}

	enc := wav.NewEncoder(f, buf.SampleRate, 16, buf.NumChannels(), wavFormatPCM)
	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.NumChannels(),
			SampleRate:  buf.SampleRate,
		},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	fields := logrus.Fields{
		"function":     "WriteWAV",
		"path":         path,
		"channels":     buf.NumChannels(),
		"sample_rate":  buf.SampleRate,
		"sample_count": buf.Len(),
	}
	if clipped > 0 {
		fields["clipped_count"] = clipped
		logrus.WithFields(fields).Warn("Audio clipping detected while writing WAV")
	} else {
		logrus.WithFields(fields).Info("WAV file written")
	}
	return nil
}
