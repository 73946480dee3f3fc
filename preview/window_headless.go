//go:build headless

package preview

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/video"
)

// Window counts frames instead of showing them.
type Window struct {
	title  string
	scaler *video.Scaler
	frames atomic.Uint64
}

// NewWindow creates a headless window.
func NewWindow(title string) *Window {
	return &Window{title: title, scaler: video.NewScaler()}
}

// Show prepares the panes and counts the frames.
func (w *Window) Show(original, encoded, decoded *video.Frame) error {
	if _, err := paneFrames(w.scaler, [3]*video.Frame{original, encoded, decoded}); err != nil {
		return err
	}
	if n := w.frames.Add(1); n%100 == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Window.Show",
			"title":    w.title,
			"frames":   n,
		}).Debug("Headless preview")
	}
	return nil
}

// Run runs session on the calling goroutine.
func (w *Window) Run(ctx context.Context, session func(ctx context.Context) error) error {
	return session(ctx)
}
