//go:build gocv

package media

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/opd-ai/avscramble/av/video"
)

// OpenCVBackendName is the name of the gocv backend.
const OpenCVBackendName = "opencv"

func init() {
	Register(OpenCVBackendName, func(*Transcoder) Backend {
		return &OpenCVBackend{}
	})
}

// OpenCVBackend captures and encodes through OpenCV's VideoCapture and
// VideoWriter.
type OpenCVBackend struct{}

// Name returns "opencv".
func (b *OpenCVBackend) Name() string {
	return OpenCVBackendName
}

// OpenFile opens a video file.
func (b *OpenCVBackend) OpenFile(ctx context.Context, path string) (FrameSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenSource, path, err)
	}
	return newOpenCVSource(vc, path)
}

// OpenCamera opens a device by index or path.
func (b *OpenCVBackend) OpenCamera(ctx context.Context, cfg CameraConfig) (FrameSource, error) {
	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenSource, cfg.Device, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}
	return newOpenCVSource(vc, cfg.Device)
}

// Create opens a VideoWriter for path.
func (b *OpenCVBackend) Create(ctx context.Context, path string, info StreamInfo, fourcc string) (FrameSink, error) {
	vw, err := gocv.VideoWriterFile(path, fourcc, info.FPS, info.Width, info.Height, info.Channels == 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenSink, path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenSink, path)
	}
	logrus.WithFields(logrus.Fields{
		"function": "OpenCVBackend.Create",
		"path":     path,
		"fourcc":   fourcc,
		"stream":   info.String(),
	}).Info("Frame sink started")
	return &opencvSink{vw: vw, info: info}, nil
}

type opencvSource struct {
	vc   *gocv.VideoCapture
	info StreamInfo
	mat  gocv.Mat
	once sync.Once
}

func newOpenCVSource(vc *gocv.VideoCapture, name string) (*opencvSource, error) {
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenSource, name)
	}
	info := StreamInfo{
		Width:    int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:   int(vc.Get(gocv.VideoCaptureFrameHeight)),
		Channels: 3,
		FPS:      vc.Get(gocv.VideoCaptureFPS),
	}
	if info.FPS <= 0 {
		info.FPS = 30
	}
	logrus.WithFields(logrus.Fields{
		"function": "newOpenCVSource",
		"source":   name,
		"stream":   info.String(),
	}).Info("Frame source started")
	return &opencvSource{vc: vc, info: info, mat: gocv.NewMat()}, nil
}

func (s *opencvSource) Info() StreamInfo {
	return s.info
}

func (s *opencvSource) Read() (*video.Frame, error) {
	if s.vc == nil {
		return nil, ErrClosed
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	frame := &video.Frame{
		Width:    s.mat.Cols(),
		Height:   s.mat.Rows(),
		Channels: s.mat.Channels(),
		Data:     s.mat.ToBytes(),
	}
	return frame, frame.Validate()
}

func (s *opencvSource) Close() error {
	var err error
	s.once.Do(func() {
		s.mat.Close()
		err = s.vc.Close()
		s.vc = nil
	})
	return err
}

type opencvSink struct {
	vw   *gocv.VideoWriter
	info StreamInfo
	once sync.Once
}

func (s *opencvSink) Write(frame *video.Frame) error {
	if s.vw == nil {
		return ErrClosed
	}
	if err := frame.Validate(); err != nil {
		return err
	}
	matType := gocv.MatTypeCV8UC3
	if frame.Channels == 1 {
		matType = gocv.MatTypeCV8UC1
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, matType, frame.Data)
	if err != nil {
		return fmt.Errorf("wrap frame: %w", err)
	}
	defer mat.Close()
	return s.vw.Write(mat)
}

func (s *opencvSink) Close() error {
	var err error
	s.once.Do(func() {
		err = s.vw.Close()
		s.vw = nil
	})
	return err
}
