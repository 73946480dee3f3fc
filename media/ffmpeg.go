package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/video"
)

// FFmpegBackendName is the name of the default backend.
const FFmpegBackendName = "ffmpeg"

// SinkFinalizeTimeout bounds how long closing a sink waits for the encoder
// to write its trailer before killing it.
var SinkFinalizeTimeout = 30 * time.Second

func init() {
	Register(FFmpegBackendName, func(t *Transcoder) Backend {
		return NewFFmpegBackend(t)
	})
}

// FFmpegBackend decodes and encodes video by piping rawvideo bgr24 through
// ffmpeg subprocesses.
type FFmpegBackend struct {
	transcoder *Transcoder
}

// NewFFmpegBackend creates a backend using the transcoder's binaries.
func NewFFmpegBackend(t *Transcoder) *FFmpegBackend {
	return &FFmpegBackend{transcoder: t}
}

// Name returns "ffmpeg".
func (b *FFmpegBackend) Name() string {
	return FFmpegBackendName
}

// OpenFile probes path and starts decoding it.
func (b *FFmpegBackend) OpenFile(ctx context.Context, path string) (FrameSource, error) {
	info, err := b.transcoder.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenSource, err)
	}
	args := []string{
		"-v", "error",
		"-i", path,
		"-an",
		"-f", "rawvideo", "-pix_fmt", "bgr24",
		"-",
	}
	return startSource(ctx, b.transcoder.FFmpeg, args, info)
}

// OpenCamera starts capturing from a device in the requested mode.
func (b *FFmpegBackend) OpenCamera(ctx context.Context, cfg CameraConfig) (FrameSource, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("%w: camera mode %dx%d@%v", ErrOpenSource, cfg.Width, cfg.Height, cfg.FPS)
	}
	format := cfg.Format
	if format == "" {
		format = "v4l2"
	}
	info := StreamInfo{Width: cfg.Width, Height: cfg.Height, Channels: 3, FPS: cfg.FPS}
	args := []string{
		"-v", "error",
		"-f", format,
		"-framerate", formatRate(cfg.FPS),
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-i", cfg.Device,
		"-f", "rawvideo", "-pix_fmt", "bgr24",
		"-",
	}
	return startSource(ctx, b.transcoder.FFmpeg, args, info)
}

// Create starts an encoder writing path.
func (b *FFmpegBackend) Create(ctx context.Context, path string, info StreamInfo, fourcc string) (FrameSink, error) {
	if info.Channels != 3 && info.Channels != 1 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrOpenSink, info.Channels)
	}
	inputFormat := "bgr24"
	if info.Channels == 1 {
		inputFormat = "gray"
	}
	// 4:2:0 chroma needs even dimensions.
	outputFormat := "yuv420p"
	if info.Width%2 != 0 || info.Height%2 != 0 {
		outputFormat = "yuv444p"
	}
	args := []string{
		"-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", inputFormat,
		"-video_size", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-framerate", formatRate(info.FPS),
		"-i", "-",
		"-an",
		"-c:v", EncoderForFourcc(fourcc),
		"-pix_fmt", outputFormat,
		path,
	}
	return startSink(ctx, b.transcoder.FFmpeg, args, info, path)
}

// EncoderForFourcc maps a fourcc code to an ffmpeg encoder name.
func EncoderForFourcc(fourcc string) string {
	switch strings.ToUpper(fourcc) {
	case "MJPG":
		return "mjpeg"
	case "MP4V", "FMP4":
		return "mpeg4"
	case "VP80":
		return "libvpx"
	default: // X264, H264, AVC1
		return "libx264"
	}
}

func formatRate(fps float64) string {
	if fps <= 0 {
		fps = 30
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

type ffmpegSource struct {
	info   StreamInfo
	tool   string
	args   []string
	cmd    *exec.Cmd
	reader *RawReader
	stderr bytes.Buffer

	closed  atomic.Bool
	once    sync.Once
	waitErr error
	frames  int
}

func startSource(ctx context.Context, tool string, args []string, info StreamInfo) (*ffmpegSource, error) {
	s := &ffmpegSource{info: info, tool: tool, args: args}
	s.cmd = exec.CommandContext(ctx, tool, args...)
	s.cmd.Stderr = &s.stderr
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenSource, err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenSource, newToolError(tool, args, nil, err))
	}
	s.reader = NewRawReader(stdout, info)

	logrus.WithFields(logrus.Fields{
		"function": "startSource",
		"tool":     tool,
		"stream":   info.String(),
	}).Info("Frame source started")

	return s, nil
}

func (s *ffmpegSource) Info() StreamInfo {
	return s.info
}

func (s *ffmpegSource) Read() (*video.Frame, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	frame, err := s.reader.ReadFrame()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if werr := s.finish(false); werr != nil {
			return nil, werr
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	s.frames++
	return frame, nil
}

func (s *ffmpegSource) Close() error {
	s.closed.Store(true)
	s.finish(true)
	return nil
}

// finish reaps the process exactly once. A killed process is not an error.
func (s *ffmpegSource) finish(kill bool) error {
	s.once.Do(func() {
		if kill && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		if err != nil && !kill {
			s.waitErr = newToolError(s.tool, s.args, s.stderr.Bytes(), err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "ffmpegSource.finish",
			"frames":   s.frames,
			"killed":   kill,
		}).Debug("Frame source finished")
	})
	return s.waitErr
}

type ffmpegSink struct {
	path   string
	tool   string
	args   []string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *RawWriter
	stderr bytes.Buffer

	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

func startSink(ctx context.Context, tool string, args []string, info StreamInfo, path string) (*ffmpegSink, error) {
	s := &ffmpegSink{path: path, tool: tool, args: args}
	// Encoders outlive cancellation so Close can still finalize the
	// container. Only a stuck encoder is killed, see Close.
	s.cmd = exec.CommandContext(context.WithoutCancel(ctx), tool, args...)
	s.cmd.Stderr = &s.stderr
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenSink, err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenSink, path, newToolError(tool, args, nil, err))
	}
	s.stdin = stdin
	s.writer = NewRawWriter(stdin, info)

	logrus.WithFields(logrus.Fields{
		"function": "startSink",
		"path":     path,
		"stream":   info.String(),
	}).Info("Frame sink started")

	return s, nil
}

func (s *ffmpegSink) Write(frame *video.Frame) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.writer.WriteFrame(frame); err != nil {
		return fmt.Errorf("write frame to %s: %w", s.path, err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	s.closed.Store(true)
	s.once.Do(func() {
		_ = s.stdin.Close()

		done := make(chan error, 1)
		go func() { done <- s.cmd.Wait() }()

		var err error
		killed := false
		timer := time.NewTimer(SinkFinalizeTimeout)
		defer timer.Stop()
		select {
		case err = <-done:
		case <-timer.C:
			killed = true
			_ = s.cmd.Process.Kill()
			err = <-done
		}
		if err != nil {
			s.closeErr = fmt.Errorf("finalize %s: %w", s.path, newToolError(s.tool, s.args, s.stderr.Bytes(), err))
		}
		logrus.WithFields(logrus.Fields{
			"function": "ffmpegSink.Close",
			"path":     s.path,
			"killed":   killed,
		}).Info("Frame sink closed")
	})
	return s.closeErr
}
