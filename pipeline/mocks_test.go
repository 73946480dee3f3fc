package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/avscramble/av/audio"
	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/ledger"
	"github.com/opd-ai/avscramble/media"
)

func testFrame(width, height, channels int, seed byte) *video.Frame {
	frame := video.NewFrame(width, height, channels)
	for i := range frame.Data {
		frame.Data[i] = byte(i/frame.Stride()) + seed
	}
	return frame
}

// fakeSource yields a fixed list of frames, or endless frames when loop is
// set.
type fakeSource struct {
	info    media.StreamInfo
	frames  []*video.Frame
	loop    bool
	readErr error

	mu     sync.Mutex
	next   int
	closed int
}

func newFakeSource(n, width, height int) *fakeSource {
	src := &fakeSource{info: media.StreamInfo{Width: width, Height: height, Channels: 3, FPS: 30}}
	for i := 0; i < n; i++ {
		src.frames = append(src.frames, testFrame(width, height, 3, byte(i*10)))
	}
	return src
}

func (s *fakeSource) Info() media.StreamInfo { return s.info }

func (s *fakeSource) Read() (*video.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil && s.next == len(s.frames) {
		return nil, s.readErr
	}
	if s.next >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, io.EOF
		}
		s.next = 0
	}
	frame := s.frames[s.next].Clone()
	s.next++
	return frame, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeSink keeps copies of written frames and optionally creates its file.
type fakeSink struct {
	path     string
	failAt   int
	closeErr error

	mu     sync.Mutex
	frames []*video.Frame
	closed int
}

func (s *fakeSink) Write(frame *video.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.frames)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, frame.Clone())
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	if s.path != "" && s.closed == 1 {
		if err := os.WriteFile(s.path, []byte("video"), 0o644); err != nil {
			return err
		}
	}
	return s.closeErr
}

func (s *fakeSink) written() []*video.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *fakeSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeBackend hands out a prepared source and records created sinks.
type fakeBackend struct {
	source     *fakeSource
	openErr    error
	createFail string

	mu     sync.Mutex
	sinks  map[string]*fakeSink
	camera media.CameraConfig
}

func newFakeBackend(src *fakeSource) *fakeBackend {
	return &fakeBackend{source: src, sinks: map[string]*fakeSink{}}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) OpenFile(ctx context.Context, path string) (media.FrameSource, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.source, nil
}

func (b *fakeBackend) OpenCamera(ctx context.Context, cfg media.CameraConfig) (media.FrameSource, error) {
	b.camera = cfg
	return b.OpenFile(ctx, cfg.Device)
}

func (b *fakeBackend) Create(ctx context.Context, path string, info media.StreamInfo, fourcc string) (media.FrameSink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createFail != "" && path == b.createFail {
		return nil, media.ErrOpenSink
	}
	sink := &fakeSink{path: path}
	b.sinks[path] = sink
	return sink, nil
}

func (b *fakeBackend) sink(path string) *fakeSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sinks[path]
}

// fakeRunner emulates ffmpeg: extraction writes a short stereo WAV, muxing
// writes a placeholder file.
type fakeRunner struct {
	t        *testing.T
	failMux  bool
	mu       sync.Mutex
	commands []string
}

func (r *fakeRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.commands = append(r.commands, name+" "+strings.Join(args, " "))
	r.mu.Unlock()

	out := args[len(args)-1]
	for _, a := range args {
		if a == "-vn" {
			buf := &audio.Buffer{
				Samples:    [][]float64{make([]float64, 441), make([]float64, 441)},
				SampleRate: 44100,
				BitDepth:   16,
			}
			for i := range buf.Samples[0] {
				buf.Samples[0][i] = 0.5
				buf.Samples[1][i] = -0.25
			}
			require.NoError(r.t, audio.WriteWAV(out, buf))
			return nil, nil
		}
	}
	if r.failMux {
		return []byte("Invalid data found when processing input"), &exitStatus{code: 1}
	}
	return nil, os.WriteFile(out, []byte("muxed"), 0o644)
}

type exitStatus struct{ code int }

func (e *exitStatus) Error() string { return "exit status 1" }
func (e *exitStatus) ExitCode() int { return e.code }

// memRecorder keeps recorded sessions in memory.
type memRecorder struct {
	sessions []*ledger.Session
}

func (m *memRecorder) Record(ctx context.Context, s *ledger.Session) (int64, error) {
	m.sessions = append(m.sessions, s)
	return int64(len(m.sessions)), nil
}

// countingDisplay counts frames and optionally stops or cancels.
type countingDisplay struct {
	stopAfter int
	onFrame   func(n int)

	mu    sync.Mutex
	shown int
}

func (d *countingDisplay) Show(original, encoded, decoded *video.Frame) error {
	d.mu.Lock()
	d.shown++
	n := d.shown
	d.mu.Unlock()
	if d.onFrame != nil {
		d.onFrame(n)
	}
	if d.stopAfter > 0 && n >= d.stopAfter {
		return ErrStopped
	}
	return nil
}
