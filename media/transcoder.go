package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 when the tool could not be started or was killed
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + lastLines(out, 5)
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// CommandRunner runs a command to completion and returns its combined
// output.
type CommandRunner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// CombinedOutput runs name with args.
func (ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type exitCoder interface {
	ExitCode() int
}

func newToolError(tool string, args []string, out []byte, err error) *ToolError {
	code := -1
	var ec exitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	return &ToolError{Tool: tool, Args: args, ExitCode: code, Output: string(out), Err: err}
}

// Transcoder drives ffmpeg and ffprobe.
type Transcoder struct {
	FFmpeg  string
	FFprobe string
	runner  CommandRunner
}

// NewTranscoder uses ffmpeg and ffprobe from PATH.
func NewTranscoder() *Transcoder {
	return NewTranscoderWithRunner(ExecRunner{})
}

// NewTranscoderWithRunner uses a custom runner, mainly for tests.
func NewTranscoderWithRunner(runner CommandRunner) *Transcoder {
	return &Transcoder{FFmpeg: "ffmpeg", FFprobe: "ffprobe", runner: runner}
}

func (t *Transcoder) run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Transcoder.run",
		"tool":     tool,
		"args":     strings.Join(args, " "),
	}).Debug("Running external tool")

	out, err := t.runner.CombinedOutput(ctx, tool, args...)
	if err != nil {
		terr := newToolError(tool, args, out, err)
		logrus.WithFields(logrus.Fields{
			"function":  "Transcoder.run",
			"tool":      tool,
			"exit_code": terr.ExitCode,
			"error":     err.Error(),
		}).Error("External tool failed")
		return out, terr
	}
	return out, nil
}

// ExtractAudio writes the audio track of video to a 44.1 kHz stereo WAV
// file, replacing any existing output.
func (t *Transcoder) ExtractAudio(ctx context.Context, videoPath, wavPath string) error {
	_, err := t.run(ctx, t.FFmpeg,
		"-y", "-i", videoPath,
		"-ab", "160k", "-ac", "2", "-ar", "44100",
		"-vn", wavPath,
	)
	if err != nil {
		return fmt.Errorf("extract audio from %s: %w", videoPath, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Transcoder.ExtractAudio",
		"video":    videoPath,
		"audio":    wavPath,
	}).Info("Audio track extracted")
	return nil
}

// MuxAudio copies the video stream of videoPath and encodes wavPath as its
// AAC audio track into outPath.
func (t *Transcoder) MuxAudio(ctx context.Context, videoPath, wavPath, outPath string) error {
	_, err := t.run(ctx, t.FFmpeg,
		"-y", "-i", videoPath, "-i", wavPath,
		"-c:v", "copy", "-c:a", "aac",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("mux %s with %s: %w", videoPath, wavPath, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Transcoder.MuxAudio",
		"video":    videoPath,
		"audio":    wavPath,
		"output":   outPath,
	}).Info("Audio track muxed")
	return nil
}

// Probe returns the geometry and frame rate of the first video stream.
// Frames are always delivered as 3-channel bgr24.
func (t *Transcoder) Probe(ctx context.Context, path string) (StreamInfo, error) {
	out, err := t.run(ctx, t.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	info, err := parseProbe(string(out))
	if err != nil {
		return StreamInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return info, nil
}

// parseProbe parses "width,height,num/den" as printed by ffprobe.
func parseProbe(out string) (StreamInfo, error) {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return StreamInfo{}, fmt.Errorf("unexpected ffprobe output %q", line)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return StreamInfo{}, fmt.Errorf("width: %w", err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return StreamInfo{}, fmt.Errorf("height: %w", err)
	}
	return StreamInfo{
		Width:    width,
		Height:   height,
		Channels: 3,
		FPS:      parseRate(parts[2]),
	}, nil
}

// parseRate parses a rational or decimal frame rate, falling back to 30.
func parseRate(raw string) float64 {
	const fallback = 30
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, e1 := strconv.ParseFloat(num, 64)
		d, e2 := strconv.ParseFloat(den, 64)
		if e1 == nil && e2 == nil && d > 0 && n > 0 {
			return n / d
		}
		return fallback
	}
	if fps, err := strconv.ParseFloat(raw, 64); err == nil && fps > 0 {
		return fps
	}
	return fallback
}
