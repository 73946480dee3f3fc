package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/avscramble/av/audio"
	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/key"
	"github.com/opd-ai/avscramble/ledger"
	"github.com/opd-ai/avscramble/pipeline"
)

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	require.NoError(t, configureLogging("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	require.NoError(t, configureLogging("warn", "text"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	assert.Error(t, configureLogging("loud", "text"))
	assert.Error(t, configureLogging("info", "xml"))
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"original", "decoded"}, parseList(" Original, ,decoded "))
	assert.Nil(t, parseList(""))
}

func TestApplyOutDir(t *testing.T) {
	opts := pipeline.NewOptions()
	applyOutDir(opts, "out")
	assert.Equal(t, filepath.Join("out", "Video_crypted.mp4"), opts.Paths.EncodedVideo)
	assert.Equal(t, filepath.Join("out", "video_decryted_with_song.mp4"), opts.Paths.DecodedMuxed)
	assert.Equal(t, filepath.Join("out", key.DefaultRecordPath), opts.KeyRecordPath)

	opts = pipeline.NewOptions()
	applyOutDir(opts, "")
	assert.Equal(t, "Video_crypted.mp4", opts.Paths.EncodedVideo)
}

func TestRootCommandParsesFlags(t *testing.T) {
	a := newApp()
	root := a.rootCommand()

	err := root.Parse([]string{
		"-log-level", "debug", "-ledger", "",
		"camera", "-device", "/dev/video2", "-width", "320", "-height", "240",
		"-discard", "original", "-preview=false", "12", "34",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", a.cfg.logLevel)
	assert.Equal(t, "", a.cfg.ledgerPath)
	assert.Equal(t, "/dev/video2", a.opts.Camera.Device)
	assert.Equal(t, 320, a.opts.Camera.Width)
	assert.Equal(t, 240, a.opts.Camera.Height)
	assert.Equal(t, "original", a.discard)
	assert.False(t, a.cameraPreview)
	assert.False(t, a.videoPreview)
}

func TestRootCommandEnvironment(t *testing.T) {
	t.Setenv("AVSCRAMBLE_LOG_FORMAT", "json")
	t.Setenv("AVSCRAMBLE_LIMIT", "3")

	a := newApp()
	require.NoError(t, a.rootCommand().Parse([]string{"history"}))
	assert.Equal(t, "json", a.cfg.logFormat)
	assert.Equal(t, 3, a.limit)
}

func TestRootCommandConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "avscramble.conf")
	require.NoError(t, os.WriteFile(cfg, []byte("log-level warn\nqueue-depth 4\n"), 0o644))

	a := newApp()
	require.NoError(t, a.rootCommand().Parse([]string{"-config", cfg, "video", "clip.mp4"}))
	assert.Equal(t, "warn", a.cfg.logLevel)
	assert.Equal(t, 4, a.opts.QueueDepth)
}

func TestAudioCommandRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = 0.25
	}
	require.NoError(t, audio.WriteWAV(in, audio.NewMonoBuffer(samples, 44100)))

	var out bytes.Buffer
	a := newApp()
	a.stdout = &out
	root := a.rootCommand()
	ledgerPath := filepath.Join(dir, "history.db")
	require.NoError(t, root.Parse([]string{"-ledger", ledgerPath, "-out-dir", dir, "audio", "encode", in}))
	require.NoError(t, root.Run(context.Background()))
	a.close()

	_, err := os.Stat(filepath.Join(dir, "Audio_crypted.wav"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Audio_crypted.wav")

	store, err := ledger.Open(ledgerPath)
	require.NoError(t, err)
	defer store.Close()
	sessions, err := store.Sessions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, pipeline.KindAudioEncode, sessions[0].Kind)
	require.Len(t, sessions[0].Artifacts, 1)
	assert.False(t, sessions[0].Finished.Before(sessions[0].Started))
	store.Close()

	out.Reset()
	a = newApp()
	a.stdout = &out
	root = a.rootCommand()
	require.NoError(t, root.Parse([]string{"-ledger", ledgerPath, "history", "-id", "1", "-verify"}))
	require.NoError(t, root.Run(context.Background()))
	a.close()
	assert.Contains(t, out.String(), "audio-encode")
	assert.Contains(t, out.String(), "ok")

	a = newApp()
	root = a.rootCommand()
	require.NoError(t, root.Parse([]string{"-ledger", ledgerPath, "history", "-id", "9"}))
	err = root.Run(context.Background())
	a.close()
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.False(t, pipeline.IsFatal(err))
}

func TestPrintHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Video_crypted.mp4")
	require.NoError(t, os.WriteFile(path, []byte("encoded"), 0o644))
	art, err := ledger.NewArtifact("encoded-video", path)
	require.NoError(t, err)

	sessions := []*ledger.Session{{
		ID:        7,
		Kind:      pipeline.KindCamera,
		Key:       key.Key{Offset: 77, Step: 3},
		KeySource: "interactive",
		Started:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Frames:    120,
		Status:    ledger.StatusOK,
		Artifacts: []ledger.Artifact{art},
	}}

	var out bytes.Buffer
	printHistory(&out, sessions, true)
	text := out.String()
	assert.Contains(t, text, "(77, 3)")
	assert.Contains(t, text, "2026-01-02 03:04:05")
	assert.Contains(t, text, "encoded-video")
	assert.True(t, strings.Contains(text, "ok"))
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	start := time.Unix(0, 0)
	printReport(&out, &pipeline.Report{
		Kind:     pipeline.KindVideo,
		Key:      key.Key{Offset: 1, Step: 2},
		Frames:   10,
		Stopped:  true,
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Outputs:  []pipeline.Output{{Role: pipeline.RoleEncoded, Media: "video", Path: "Video_crypted.mp4"}},
	})
	assert.Contains(t, out.String(), "video session (1, 2): 10 frames in 1.5s (stopped)")
	assert.Contains(t, out.String(), "Video_crypted.mp4")
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512B", humanSize(512))
	assert.Equal(t, "1.5KiB", humanSize(1536))
	assert.Equal(t, "2.0MiB", humanSize(2*1024*1024))
}

// fakePlayer blocks until ctx is done or returns playErr at once.
type fakePlayer struct {
	playErr error
	closed  int
}

func (p *fakePlayer) Play(ctx context.Context, buf *audio.Buffer) error {
	if p.playErr != nil {
		return p.playErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePlayer) Close() error {
	p.closed++
	return nil
}

func TestPlayCommand(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, audio.WriteWAV(in, audio.NewMonoBuffer(make([]float64, 100), 8000)))

	tests := []struct {
		name    string
		playErr error
		wantErr bool
	}{
		{"interrupted", nil, false},
		{"device failure", errors.New("device busy"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePlayer{playErr: tt.playErr}
			a := newApp()
			a.newPlayer = func(rate, channels int) (player, error) {
				assert.Equal(t, 8000, rate)
				assert.Equal(t, 1, channels)
				return fake, nil
			}
			root := a.rootCommand()
			require.NoError(t, root.Parse([]string{"-ledger", "", "play", in}))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			time.AfterFunc(20*time.Millisecond, cancel)
			err := root.Run(ctx)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, pipeline.IsFatal(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, fake.closed)
		})
	}
}

func TestConvertCommandFlags(t *testing.T) {
	a := newApp()
	require.NoError(t, a.rootCommand().Parse([]string{
		"convert", "-direction", "encode", "-o", "out.mp4", "-fourcc", "MJPG", "clip.mp4", "1", "2",
	}))
	assert.Equal(t, "encode", a.direction)
	assert.Equal(t, "out.mp4", a.convertOut)
	assert.Equal(t, "MJPG", a.opts.Fourcc)

	dir, err := video.ParseDirection(a.direction)
	require.NoError(t, err)
	assert.Equal(t, video.Encode, dir)

	a = newApp()
	root := a.rootCommand()
	require.NoError(t, root.Parse([]string{"-ledger", "", "convert", "-direction", "sideways", "clip.mp4"}))
	err = root.Run(context.Background())
	assert.ErrorIs(t, err, video.ErrUnknownDirection)
}
