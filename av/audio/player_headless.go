//go:build headless

package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Player simulates playback without an audio device: Play waits for the
// buffer's duration.
type Player struct {
	sampleRate int
	channels   int
}

// NewPlayer returns a device-less player.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	return &Player{sampleRate: sampleRate, channels: channels}, nil
}

// Play blocks for the duration of buf or until ctx is cancelled.
func (p *Player) Play(ctx context.Context, buf *Buffer) error {
	if buf.SampleRate != p.sampleRate || buf.NumChannels() != p.channels {
		return fmt.Errorf("%w: player is %d Hz x %d, buffer is %d Hz x %d", ErrUnsupportedFormat,
			p.sampleRate, p.channels, buf.SampleRate, buf.NumChannels())
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Player.Play",
		"sample_count": buf.Len(),
		"duration":     buf.Duration().String(),
	}).Info("Headless playback")

	timer := time.NewTimer(buf.Duration())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases the player.
func (p *Player) Close() error {
	return nil
}
