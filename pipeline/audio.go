package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/audio"
)

// AudioSession scrambles and unscrambles whole audio files.
type AudioSession struct {
	transform *audio.Transform
}

// NewAudioSession creates an audio session with the Gaussian kernel.
func NewAudioSession() *AudioSession {
	return &AudioSession{transform: audio.NewTransform()}
}

// EncodeFile low-passes and modulates input and writes a WAV file to
// output.
func (a *AudioSession) EncodeFile(input, output string) error {
	return a.run("encode audio", input, output, a.transform.Encode)
}

// DecodeFile applies the decode filter to input and writes a WAV file to
// output.
func (a *AudioSession) DecodeFile(input, output string) error {
	return a.run("decode audio", input, output, a.transform.Decode)
}

func (a *AudioSession) run(op, input, output string, apply func(*audio.Buffer) error) error {
	buf, err := audio.ReadFile(input)
	if err != nil {
		return sessionError(op, err)
	}
	if err := apply(buf); err != nil {
		return sessionError(op, err)
	}
	if err := audio.WriteWAV(output, buf); err != nil {
		return sessionError(op, fmt.Errorf("write %s: %w", output, err))
	}

	logrus.WithFields(logrus.Fields{
		"function":    "AudioSession.run",
		"op":          op,
		"input":       input,
		"output":      output,
		"channels":    buf.NumChannels(),
		"sample_rate": buf.SampleRate,
		"duration":    buf.Duration(),
	}).Info("Audio file processed")
	return nil
}
