//go:build !headless

package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Player plays buffers on the default audio device.
//
// oto allows a single context per process, so one Player is created per
// sample rate and channel layout and reused.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
}

// NewPlayer opens the audio device.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	logrus.WithFields(logrus.Fields{
		"function":    "NewPlayer",
		"sample_rate": sampleRate,
		"channels":    channels,
	}).Info("Audio device opened")

	return &Player{ctx: ctx, sampleRate: sampleRate, channels: channels}, nil
}

// Play blocks until buf has been played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, buf *Buffer) error {
	if buf.SampleRate != p.sampleRate || buf.NumChannels() != p.channels {
		return fmt.Errorf("%w: player is %d Hz x %d, buffer is %d Hz x %d", ErrUnsupportedFormat,
			p.sampleRate, p.channels, buf.SampleRate, buf.NumChannels())
	}

	interleaved := buf.interleave()
	pcm := make([]byte, 4*len(interleaved))
	for i, v := range interleaved {
		binary.LittleEndian.PutUint32(pcm[4*i:], math.Float32bits(float32(v)))
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	logrus.WithFields(logrus.Fields{
		"function":     "Player.Play",
		"sample_count": buf.Len(),
		"duration":     buf.Duration().String(),
	}).Info("Playing audio")

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close releases the player. The oto context itself lives until exit.
func (p *Player) Close() error {
	return nil
}
