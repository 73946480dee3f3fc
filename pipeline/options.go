package pipeline

import (
	"fmt"
	"time"

	"github.com/opd-ai/avscramble/key"
	"github.com/opd-ai/avscramble/media"
)

// Roles name the three parallel outputs of a session.
const (
	RoleOriginal = "original"
	RoleEncoded  = "encoded"
	RoleDecoded  = "decoded"
)

// Paths are the output locations of a session.
type Paths struct {
	OriginalVideo string
	EncodedVideo  string
	DecodedVideo  string

	OriginalAudio string
	EncodedAudio  string
	DecodedAudio  string

	OriginalMuxed string
	EncodedMuxed  string
	DecodedMuxed  string
}

// DefaultPaths returns the conventional output names in the working
// directory.
func DefaultPaths() Paths {
	return Paths{
		OriginalVideo: "Video_captured.mp4",
		EncodedVideo:  "Video_crypted.mp4",
		DecodedVideo:  "Video_decrypted.mp4",
		OriginalAudio: "Audio_captured.wav",
		EncodedAudio:  "Audio_crypted.wav",
		DecodedAudio:  "Audio_decrypted.wav",
		OriginalMuxed: "video_captured_with_song.mp4",
		EncodedMuxed:  "video_cryted_with_song.mp4",
		DecodedMuxed:  "video_decryted_with_song.mp4",
	}
}

// Video returns the silent video path for a role.
func (p Paths) Video(role string) string {
	switch role {
	case RoleOriginal:
		return p.OriginalVideo
	case RoleEncoded:
		return p.EncodedVideo
	case RoleDecoded:
		return p.DecodedVideo
	}
	return ""
}

// DefaultFrameInterval is the capture cadence, about 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// Options configures sessions.
type Options struct {
	Paths         Paths
	KeyRecordPath string

	// Backend names a registered media backend.
	Backend string
	// Fourcc selects the output codec.
	Fourcc string
	Camera media.CameraConfig

	// FrameInterval paces live capture.
	FrameInterval time.Duration
	// QueueDepth bounds the frames buffered between capture and processing.
	QueueDepth int
	// Realtime paces file processing at FrameInterval as well.
	Realtime bool

	// Discard lists roles whose silent video is deleted after a session.
	Discard []string
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Paths:         DefaultPaths(),
		KeyRecordPath: key.DefaultRecordPath,
		Backend:       media.FFmpegBackendName,
		Fourcc:        "avc1",
		Camera: media.CameraConfig{
			Device: "/dev/video0",
			Format: "v4l2",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		FrameInterval: DefaultFrameInterval,
		QueueDepth:    2,
	}
}

// Validate checks option values.
func (o *Options) Validate() error {
	if o.QueueDepth < 1 {
		return fmt.Errorf("%w: queue depth %d", ErrInvalidOptions, o.QueueDepth)
	}
	if o.FrameInterval < 0 {
		return fmt.Errorf("%w: frame interval %v", ErrInvalidOptions, o.FrameInterval)
	}
	for _, role := range o.Discard {
		if o.Paths.Video(role) == "" {
			return fmt.Errorf("%w: unknown discard role %q", ErrInvalidOptions, role)
		}
	}
	return nil
}
