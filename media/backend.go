package media

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CameraConfig selects a capture device and its requested mode.
type CameraConfig struct {
	// Device is a device path (/dev/video0) or index ("0").
	Device string
	// Format is the ffmpeg input format for the device (v4l2, avfoundation,
	// dshow). Ignored by the opencv backend.
	Format string
	Width  int
	Height int
	FPS    float64
}

// Backend opens frame sources and sinks.
type Backend interface {
	// Name returns the registered backend name.
	Name() string
	// OpenFile opens a video file for decoding.
	OpenFile(ctx context.Context, path string) (FrameSource, error)
	// OpenCamera opens a live capture device.
	OpenCamera(ctx context.Context, cfg CameraConfig) (FrameSource, error)
	// Create opens an encoded output file. fourcc names the codec.
	Create(ctx context.Context, path string, info StreamInfo, fourcc string) (FrameSink, error)
}

// BackendFactory builds a backend around a transcoder.
type BackendFactory func(t *Transcoder) Backend

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// Register makes a backend available by name. Registering a name twice
// replaces the earlier factory.
func Register(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// NewBackend instantiates the named backend.
func NewBackend(name string, t *Transcoder) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return factory(t), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
