//go:build !headless

package preview

import (
	"context"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font/basicfont"

	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/pipeline"
)

const labelHeight = 18

// Window is an ebiten window with three panes.
type Window struct {
	title  string
	scaler *video.Scaler

	bufferMutex sync.Mutex
	pixels      [3][]byte
	width       int
	height      int
	dirty       bool
	resized     bool

	images [3]*ebiten.Image
	closed atomic.Bool
	done   chan struct{}
	frames atomic.Uint64
}

// NewWindow creates a window. Nothing is shown until Run.
func NewWindow(title string) *Window {
	return &Window{
		title:  title,
		scaler: video.NewScaler(),
		width:  320,
		height: 240,
		done:   make(chan struct{}),
	}
}

// Show copies the frames into the window. It returns pipeline.ErrStopped
// once the window has been closed.
func (w *Window) Show(original, encoded, decoded *video.Frame) error {
	if w.closed.Load() {
		return pipeline.ErrStopped
	}

	panes, err := paneFrames(w.scaler, [3]*video.Frame{original, encoded, decoded})
	if err != nil {
		return err
	}

	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()
	for i, f := range panes {
		buf, err := toRGBA(w.pixels[i], f)
		if err != nil {
			return err
		}
		w.pixels[i] = buf
	}
	if panes[0].Width != w.width || panes[0].Height != w.height {
		w.width, w.height = panes[0].Width, panes[0].Height
		w.resized = true
	}
	w.dirty = true
	w.frames.Add(1)
	return nil
}

// Run runs session on a new goroutine and the window event loop on the
// calling one. It returns the session's error after both have ended.
func (w *Window) Run(ctx context.Context, session func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		defer close(w.done)
		errc <- session(ctx)
	}()

	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowSize(3*w.width, w.height+labelHeight)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)

	if err := ebiten.RunGame(w); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Window.Run",
			"error":    err.Error(),
		}).Error("Preview window failed")
	}
	w.closed.Store(true)
	cancel()

	err := <-errc
	logrus.WithFields(logrus.Fields{
		"function": "Window.Run",
		"frames":   w.frames.Load(),
	}).Info("Preview window closed")
	return err
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		w.closed.Store(true)
		return ebiten.Termination
	}
	select {
	case <-w.done:
		return ebiten.Termination
	default:
	}

	w.bufferMutex.Lock()
	resized := w.resized
	width, height := w.width, w.height
	w.resized = false
	w.bufferMutex.Unlock()
	if resized {
		ebiten.SetWindowSize(3*width, height+labelHeight)
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	w.bufferMutex.Lock()
	width, height := w.width, w.height
	if w.dirty {
		for i := range w.images {
			if w.pixels[i] == nil {
				continue
			}
			img := w.images[i]
			if img == nil || img.Bounds().Dx() != width || img.Bounds().Dy() != height {
				if img != nil {
					img.Deallocate()
				}
				img = ebiten.NewImage(width, height)
				w.images[i] = img
			}
			img.WritePixels(w.pixels[i])
		}
		w.dirty = false
	}
	w.bufferMutex.Unlock()

	labelColor := color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	for i, img := range w.images {
		x := i * width
		text.Draw(screen, paneLabels[i], basicfont.Face7x13, x+4, 13, labelColor)
		if img == nil {
			continue
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x), labelHeight)
		screen.DrawImage(img, op)
	}
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()
	return 3 * w.width, w.height + labelHeight
}
