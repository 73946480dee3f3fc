package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/key"
	"github.com/opd-ai/avscramble/media"
)

func newTestSinks() (Sinks, *fakeSink, *fakeSink, *fakeSink) {
	o, e, d := &fakeSink{}, &fakeSink{}, &fakeSink{}
	return Sinks{Original: o, Encoded: e, Decoded: d}, o, e, d
}

func TestVideoSessionWritesEveryTriple(t *testing.T) {
	k := key.Key{Offset: 77, Step: 3}
	scrambler := video.NewScrambler(k)
	src := newFakeSource(5, 4, 7)
	sinks, o, e, d := newTestSinks()

	vs := NewVideoSession(scrambler, src, sinks)
	stats, err := vs.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Frames)
	assert.False(t, stats.Stopped)
	assert.Equal(t, src.info, stats.Stream)

	require.Len(t, o.written(), 5)
	require.Len(t, e.written(), 5)
	require.Len(t, d.written(), 5)
	for i, original := range o.written() {
		assert.Equal(t, src.frames[i].Data, original.Data)

		want := video.NewFrame(4, 7, 3)
		require.NoError(t, scrambler.Scramble(original, want, video.Encode))
		assert.Equal(t, want.Data, e.written()[i].Data)
		assert.NotEqual(t, original.Data, e.written()[i].Data)
		assert.Equal(t, original.Data, d.written()[i].Data)
	}

	assert.Equal(t, 1, src.closeCount())
	for _, s := range []*fakeSink{o, e, d} {
		assert.Equal(t, 1, s.closeCount())
	}

	require.NoError(t, vs.Close())
	assert.Equal(t, 1, src.closeCount())
	assert.Equal(t, 1, o.closeCount())
}

func TestVideoSessionEmptySource(t *testing.T) {
	sinks, o, _, _ := newTestSinks()
	vs := NewVideoSession(video.NewScrambler(key.Key{}), newFakeSource(0, 4, 4), sinks)

	stats, err := vs.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Frames)
	assert.Equal(t, 1, o.closeCount())
}

func TestVideoSessionSinkFailure(t *testing.T) {
	src := newFakeSource(5, 4, 4)
	sinks, o, e, d := newTestSinks()
	e.failAt = 3

	vs := NewVideoSession(video.NewScrambler(key.Key{Offset: 1, Step: 1}), src, sinks)
	stats, err := vs.Run(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "write encoded frame", perr.Op)
	assert.Equal(t, AbortSession, perr.Severity)
	assert.False(t, IsFatal(err))
	assert.Equal(t, 2, stats.Frames)

	assert.Equal(t, 1, src.closeCount())
	for _, s := range []*fakeSink{o, e, d} {
		assert.Equal(t, 1, s.closeCount())
	}
}

func TestVideoSessionSourceFailure(t *testing.T) {
	src := newFakeSource(2, 4, 4)
	src.readErr = errors.New("device unplugged")
	sinks, o, _, _ := newTestSinks()

	vs := NewVideoSession(video.NewScrambler(key.Key{}), src, sinks)
	stats, err := vs.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read frame")
	// Frames still queued when the producer fails are dropped.
	assert.LessOrEqual(t, stats.Frames, 2)
	assert.Len(t, o.written(), stats.Frames)
	assert.Equal(t, 1, src.closeCount())
}

func TestVideoSessionCloseErrorReported(t *testing.T) {
	sinks, _, _, d := newTestSinks()
	d.closeErr = errors.New("moov atom not written")

	vs := NewVideoSession(video.NewScrambler(key.Key{}), newFakeSource(1, 2, 2), sinks)
	_, err := vs.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moov atom not written")
}

func TestVideoSessionDisplayStops(t *testing.T) {
	src := newFakeSource(3, 4, 4)
	src.loop = true
	sinks, o, e, d := newTestSinks()
	display := &countingDisplay{stopAfter: 4}

	vs := NewVideoSession(video.NewScrambler(key.Key{Offset: 9, Step: 2}), src, sinks)
	vs.SetDisplay(display)
	stats, err := vs.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.Stopped)
	assert.Equal(t, 4, stats.Frames)
	assert.Len(t, o.written(), 4)
	assert.Len(t, e.written(), 4)
	assert.Len(t, d.written(), 4)
}

func TestVideoSessionCancellation(t *testing.T) {
	src := newFakeSource(2, 4, 4)
	src.loop = true
	sinks, o, e, d := newTestSinks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	display := &countingDisplay{onFrame: func(n int) {
		if n == 3 {
			cancel()
		}
	}}

	vs := NewVideoSession(video.NewScrambler(key.Key{Offset: 3, Step: 5}), src, sinks)
	vs.SetDisplay(display)
	vs.SetPacing(time.Millisecond)
	vs.SetQueueDepth(1)

	stats, err := vs.Run(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Stopped)
	assert.GreaterOrEqual(t, stats.Frames, 3)

	// Every processed frame was written to all three sinks.
	assert.Equal(t, len(o.written()), len(e.written()))
	assert.Equal(t, len(o.written()), len(d.written()))
	assert.Equal(t, stats.Frames, len(o.written()))
	assert.Equal(t, 1, src.closeCount())
}

func TestVideoSessionQueueDepthFloor(t *testing.T) {
	sinks, _, _, _ := newTestSinks()
	vs := NewVideoSession(video.NewScrambler(key.Key{}), newFakeSource(1, 1, 1), sinks)
	vs.SetQueueDepth(0)
	assert.Equal(t, 1, vs.queueDepth)
}

// fakeEncoder writes a script standing in for ffmpeg that copies stdin to
// its last argument and appends a trailer once stdin is closed.
func fakeEncoder(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\ncat > \"$last\"\necho TRAILER >> \"$last\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestVideoSessionCancellationFinalizesEncoders(t *testing.T) {
	transcoder := media.NewTranscoder()
	transcoder.FFmpeg = fakeEncoder(t)
	backend := media.NewFFmpegBackend(transcoder)

	src := newFakeSource(2, 4, 4)
	src.loop = true
	dir := t.TempDir()
	paths := map[string]string{
		RoleOriginal: filepath.Join(dir, "o.mp4"),
		RoleEncoded:  filepath.Join(dir, "e.mp4"),
		RoleDecoded:  filepath.Join(dir, "d.mp4"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sinks Sinks
	for role, dst := range map[string]*media.FrameSink{
		RoleOriginal: &sinks.Original,
		RoleEncoded:  &sinks.Encoded,
		RoleDecoded:  &sinks.Decoded,
	} {
		sink, err := backend.Create(ctx, paths[role], src.info, "avc1")
		require.NoError(t, err)
		*dst = sink
	}

	vs := NewVideoSession(video.NewScrambler(key.Key{Offset: 5, Step: 1}), src, sinks)
	vs.SetPacing(20 * time.Millisecond)
	vs.SetDisplay(&countingDisplay{onFrame: func(n int) {
		if n == 5 {
			cancel()
		}
	}})

	stats, err := vs.Run(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Stopped)
	assert.GreaterOrEqual(t, stats.Frames, 5)

	frameSize := 4 * 4 * 3
	for role, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err, role)
		assert.True(t, bytes.HasSuffix(data, []byte("TRAILER\n")), role)
		assert.Len(t, data, stats.Frames*frameSize+len("TRAILER\n"), role)
	}
}

// blockingSink blocks the write of frame blockAt until the sink is closed.
type blockingSink struct {
	blockAt int
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	written int
	once    sync.Once
}

func newBlockingSink(blockAt int) *blockingSink {
	return &blockingSink{blockAt: blockAt, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSink) Write(frame *video.Frame) error {
	s.mu.Lock()
	n := s.written + 1
	s.mu.Unlock()
	if n == s.blockAt {
		close(s.entered)
		<-s.release
		return media.ErrClosed
	}
	s.mu.Lock()
	s.written = n
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) Close() error {
	s.once.Do(func() { close(s.release) })
	return nil
}

func TestVideoSessionStopReleasesStuckFrame(t *testing.T) {
	src := newFakeSource(2, 4, 4)
	src.loop = true
	sinks, o, _, d := newTestSinks()
	stuck := newBlockingSink(3)
	sinks.Encoded = stuck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stuck.entered
		cancel()
	}()

	vs := NewVideoSession(video.NewScrambler(key.Key{Offset: 2, Step: 2}), src, sinks)
	vs.SetPacing(10 * time.Millisecond)

	start := time.Now()
	stats, err := vs.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, stats.Stopped)
	assert.Equal(t, 2, stats.Frames)
	assert.Len(t, d.written(), 2)
	assert.Equal(t, 1, o.closeCount())
	assert.Equal(t, 1, src.closeCount())
}
