package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/media"
)

// Display shows each processed frame triple. Implementations must not
// retain the frames after Show returns. Returning ErrStopped ends the
// session normally.
type Display interface {
	Show(original, encoded, decoded *video.Frame) error
}

// Sinks are the three outputs of a video session.
type Sinks struct {
	Original media.FrameSink
	Encoded  media.FrameSink
	Decoded  media.FrameSink
}

func (s Sinks) each(fn func(role string, sink media.FrameSink)) {
	fn(RoleOriginal, s.Original)
	fn(RoleEncoded, s.Encoded)
	fn(RoleDecoded, s.Decoded)
}

// VideoStats summarizes a finished video session.
type VideoStats struct {
	Stream  media.StreamInfo
	Frames  int
	Elapsed time.Duration
	// Stopped is set when the session ended by cancellation or by the
	// display rather than at the end of the source.
	Stopped bool
}

// VideoSession moves frames from a source through the scrambler into the
// original, encoded and decoded sinks. It owns the source and sinks and
// closes them exactly once.
type VideoSession struct {
	scrambler    *video.Scrambler
	source       media.FrameSource
	sinks        Sinks
	display      Display
	interval     time.Duration
	queueDepth   int
	timeProvider TimeProvider

	encoded *video.Frame
	decoded *video.Frame

	closeOnce sync.Once
	closeErr  error
}

// NewVideoSession creates a session with an unpaced producer and a queue
// depth of 2.
func NewVideoSession(scrambler *video.Scrambler, source media.FrameSource, sinks Sinks) *VideoSession {
	return &VideoSession{
		scrambler:    scrambler,
		source:       source,
		sinks:        sinks,
		queueDepth:   2,
		timeProvider: RealTimeProvider{},
	}
}

// SetDisplay attaches a display. Nil detaches it.
func (vs *VideoSession) SetDisplay(d Display) {
	vs.display = d
}

// SetPacing makes the producer read one frame per interval. Zero reads as
// fast as the source delivers.
func (vs *VideoSession) SetPacing(interval time.Duration) {
	vs.interval = interval
}

// SetQueueDepth bounds the frames buffered between producer and processor.
func (vs *VideoSession) SetQueueDepth(n int) {
	if n < 1 {
		n = 1
	}
	vs.queueDepth = n
}

// SetTimeProvider replaces the clock.
func (vs *VideoSession) SetTimeProvider(tp TimeProvider) {
	vs.timeProvider = getTimeProvider(tp)
}

// Run processes frames until the source ends, ctx is cancelled, the display
// stops the session, or a stage fails. Cancellation is not an error. The
// source and sinks are closed before Run returns.
func (vs *VideoSession) Run(ctx context.Context) (VideoStats, error) {
	stats := VideoStats{Stream: vs.source.Info()}
	start := vs.timeProvider.Now()

	logrus.WithFields(logrus.Fields{
		"function": "VideoSession.Run",
		"stream":   stats.Stream.String(),
		"interval": vs.interval,
		"key":      vs.scrambler.Cipher().Key().String(),
	}).Info("Starting video session")

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *video.Frame, vs.queueDepth)

	g.Go(func() error {
		defer close(queue)
		return vs.produce(gctx, queue)
	})
	g.Go(func() error {
		n, err := vs.process(gctx, queue)
		stats.Frames = n
		return err
	})

	err := vs.wait(ctx, g, stats.Stream)
	if errors.Is(err, ErrStopped) {
		stats.Stopped = true
		err = nil
	}
	if ctx.Err() != nil {
		stats.Stopped = true
	}
	if cerr := vs.Close(); err == nil {
		err = cerr
	}
	stats.Elapsed = vs.timeProvider.Now().Sub(start)

	fields := logrus.Fields{
		"function": "VideoSession.Run",
		"frames":   stats.Frames,
		"elapsed":  stats.Elapsed,
		"stopped":  stats.Stopped,
	}
	if err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("Video session failed")
		return stats, err
	}
	logrus.WithFields(fields).Info("Video session finished")
	return stats, nil
}

// wait returns when both stages have ended. After cancellation the frame in
// flight gets one frame period to finish; then the streams are released,
// which unblocks a stage stuck in a write.
func (vs *VideoSession) wait(ctx context.Context, g *errgroup.Group, info media.StreamInfo) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	grace := time.NewTimer(vs.framePeriod(info))
	defer grace.Stop()
	select {
	case err := <-done:
		return err
	case <-grace.C:
	}

	logrus.WithFields(logrus.Fields{
		"function": "VideoSession.wait",
		"period":   vs.framePeriod(info),
	}).Warn("Frame in flight did not finish within one frame period, releasing streams")
	vs.Close()
	if err := <-done; err != nil && !errors.Is(err, ErrStopped) {
		logrus.WithFields(logrus.Fields{
			"function": "VideoSession.wait",
			"error":    err.Error(),
		}).Warn("Abandoned frame in flight")
	}
	return nil
}

// framePeriod is the pacing interval, or the stream's frame duration when
// unpaced.
func (vs *VideoSession) framePeriod(info media.StreamInfo) time.Duration {
	if vs.interval > 0 {
		return vs.interval
	}
	if info.FPS > 0 {
		return time.Duration(float64(time.Second) / info.FPS)
	}
	return DefaultFrameInterval
}

func (vs *VideoSession) produce(ctx context.Context, queue chan<- *video.Frame) error {
	var tick <-chan time.Time
	if vs.interval > 0 {
		ticker := vs.timeProvider.NewTicker(vs.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		frame, err := vs.source.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return sessionError("read frame", err)
		}

		select {
		case queue <- frame:
		case <-ctx.Done():
			return nil
		}
	}
}

func (vs *VideoSession) process(ctx context.Context, queue <-chan *video.Frame) (int, error) {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, nil
		case frame, ok := <-queue:
			if !ok {
				return n, nil
			}
			err := vs.processFrame(frame)
			if err == nil || errors.Is(err, ErrStopped) {
				n++
			}
			if err != nil {
				return n, err
			}
		}
	}
}

// processFrame completes one triple regardless of cancellation, unless the
// streams are released under it by wait.
func (vs *VideoSession) processFrame(frame *video.Frame) error {
	if vs.encoded == nil || !vs.encoded.SameGeometry(frame) {
		vs.encoded = video.NewFrame(frame.Width, frame.Height, frame.Channels)
		vs.decoded = video.NewFrame(frame.Width, frame.Height, frame.Channels)
	}
	if err := vs.scrambler.Scramble(frame, vs.encoded, video.Encode); err != nil {
		return sessionError("encode frame", err)
	}
	if err := vs.scrambler.Scramble(vs.encoded, vs.decoded, video.Decode); err != nil {
		return sessionError("decode frame", err)
	}

	if err := vs.sinks.Original.Write(frame); err != nil {
		return sessionError("write original frame", err)
	}
	if err := vs.sinks.Encoded.Write(vs.encoded); err != nil {
		return sessionError("write encoded frame", err)
	}
	if err := vs.sinks.Decoded.Write(vs.decoded); err != nil {
		return sessionError("write decoded frame", err)
	}

	if vs.display != nil {
		err := vs.display.Show(frame, vs.encoded, vs.decoded)
		if errors.Is(err, ErrStopped) {
			return ErrStopped
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "VideoSession.processFrame",
				"error":    err.Error(),
			}).Warn("Display failed to show frame")
		}
	}
	return nil
}

// Close releases the source and sinks. It is safe to call more than once.
func (vs *VideoSession) Close() error {
	vs.closeOnce.Do(func() {
		var errs []error
		if err := vs.source.Close(); err != nil {
			errs = append(errs, err)
		}
		vs.sinks.each(func(role string, sink media.FrameSink) {
			if sink == nil {
				return
			}
			if err := sink.Close(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "VideoSession.Close",
					"role":     role,
					"error":    err.Error(),
				}).Error("Failed to close sink")
				errs = append(errs, err)
			}
		})
		vs.closeErr = sessionError("close streams", errors.Join(errs...))
	})
	return vs.closeErr
}
