package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
)

// ReadFLAC decodes a whole FLAC file into a normalized buffer.
func ReadFLAC(path string) (*Buffer, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}
	bitDepth := int(stream.Info.BitsPerSample)

	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, 0, stream.Info.NSamples)
	}

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		for ch, sub := range frame.Subframes {
			if ch >= channels {
				break
			}
			for _, v := range sub.Samples {
				samples[ch] = append(samples[ch], normalize(int(v), bitDepth))
			}
		}
	}

	buf := &Buffer{
		Samples:    samples,
		SampleRate: int(stream.Info.SampleRate),
		BitDepth:   bitDepth,
	}

	logrus.WithFields(logrus.Fields{
		"function":     "ReadFLAC",
		"path":         path,
		"channels":     channels,
		"sample_rate":  buf.SampleRate,
		"bit_depth":    bitDepth,
		"sample_count": buf.Len(),
	}).Info("FLAC file loaded")

	return buf, nil
}
