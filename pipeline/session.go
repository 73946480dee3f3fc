package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/key"
	"github.com/opd-ai/avscramble/ledger"
	"github.com/opd-ai/avscramble/media"
)

// Session kinds as stored in the ledger.
const (
	KindVideo       = "video"
	KindCamera      = "camera"
	KindAudioEncode = "audio-encode"
	KindAudioDecode = "audio-decode"
)

// Recorder stores finished sessions.
type Recorder interface {
	Record(ctx context.Context, s *ledger.Session) (int64, error)
}

// Output is a file written by a session.
type Output struct {
	Role  string
	Media string // video, audio or muxed
	Path  string
}

// Report describes a finished session.
type Report struct {
	Kind     string
	Key      key.Key
	Input    string
	Frames   int
	Stopped  bool
	Outputs  []Output
	Started  time.Time
	Finished time.Time

	// videoDone is set once the three silent videos are finalized.
	videoDone bool
}

// Session runs the file and camera workflows under one key.
type Session struct {
	key          key.Key
	keySource    key.Source
	opts         *Options
	backend      media.Backend
	transcoder   *media.Transcoder
	scrambler    *video.Scrambler
	audio        *AudioSession
	display      Display
	recorder     Recorder
	timeProvider TimeProvider
}

// NewSession validates opts and prepares a session for k.
func NewSession(k key.Key, source key.Source, opts *Options, backend media.Backend, transcoder *media.Transcoder) (*Session, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, processError("configure session", err)
	}
	if !k.Valid() {
		return nil, processError("configure session", fmt.Errorf("%w: key %s", ErrInvalidOptions, k))
	}
	return &Session{
		key:          k,
		keySource:    source,
		opts:         opts,
		backend:      backend,
		transcoder:   transcoder,
		scrambler:    video.NewScrambler(k),
		audio:        NewAudioSession(),
		timeProvider: RealTimeProvider{},
	}, nil
}

// SetDisplay attaches a display to video sessions.
func (s *Session) SetDisplay(d Display) {
	s.display = d
}

// SetRecorder attaches a session history store.
func (s *Session) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetTimeProvider replaces the clock.
func (s *Session) SetTimeProvider(tp TimeProvider) {
	s.timeProvider = getTimeProvider(tp)
}

// Key returns the session key.
func (s *Session) Key() key.Key {
	return s.key
}

// ProcessFile scrambles the rows of input into the original, encoded and
// decoded videos, then carries the audio track through the audio transform
// and muxes each audio file onto its video.
func (s *Session) ProcessFile(ctx context.Context, input string) (report *Report, err error) {
	report = s.begin(KindVideo, input)
	defer s.finish(ctx, report, &err)

	if err = s.writeKeyRecord(); err != nil {
		return report, err
	}

	stats, err := s.runVideo(ctx, func() (media.FrameSource, error) {
		return s.backend.OpenFile(ctx, input)
	}, s.opts.Realtime)
	report.Frames = stats.Frames
	report.Stopped = stats.Stopped
	if err != nil {
		return report, err
	}
	report.videoDone = true
	if stats.Stopped {
		s.discard()
		return report, nil
	}

	paths := s.opts.Paths
	if err = sessionError("extract audio", s.transcoder.ExtractAudio(ctx, input, paths.OriginalAudio)); err != nil {
		return report, err
	}
	report.add(RoleOriginal, "audio", paths.OriginalAudio)

	if err = s.audio.EncodeFile(paths.OriginalAudio, paths.EncodedAudio); err != nil {
		return report, err
	}
	report.add(RoleEncoded, "audio", paths.EncodedAudio)

	if err = s.audio.DecodeFile(paths.EncodedAudio, paths.DecodedAudio); err != nil {
		return report, err
	}
	report.add(RoleDecoded, "audio", paths.DecodedAudio)

	muxes := []struct {
		role, video, audio, out string
	}{
		{RoleOriginal, paths.OriginalVideo, paths.OriginalAudio, paths.OriginalMuxed},
		{RoleEncoded, paths.EncodedVideo, paths.EncodedAudio, paths.EncodedMuxed},
		{RoleDecoded, paths.DecodedVideo, paths.DecodedAudio, paths.DecodedMuxed},
	}
	for _, m := range muxes {
		media.RemoveIfExists(m.out)
	}
	for _, m := range muxes {
		if err = s.transcoder.MuxAudio(ctx, m.video, m.audio, m.out); err != nil {
			return report, sessionError("mux "+m.role, err)
		}
		report.add(m.role, "muxed", m.out)
	}

	s.discard()
	return report, nil
}

// Capture records from the configured camera until ctx is cancelled or the
// display stops the session.
func (s *Session) Capture(ctx context.Context) (report *Report, err error) {
	report = s.begin(KindCamera, s.opts.Camera.Device)
	defer s.finish(ctx, report, &err)

	if err = s.writeKeyRecord(); err != nil {
		return report, err
	}

	stats, err := s.runVideo(ctx, func() (media.FrameSource, error) {
		return s.backend.OpenCamera(ctx, s.opts.Camera)
	}, true)
	report.Frames = stats.Frames
	report.Stopped = stats.Stopped
	if err != nil {
		return report, err
	}
	report.videoDone = true

	s.discard()
	return report, nil
}

func (s *Session) writeKeyRecord() error {
	return processError("write key record", key.WriteRecord(s.opts.KeyRecordPath, s.key))
}

func (s *Session) runVideo(ctx context.Context, open func() (media.FrameSource, error), paced bool) (VideoStats, error) {
	src, err := open()
	if err != nil {
		return VideoStats{}, sessionError("open source", err)
	}
	info := src.Info()

	sinks, err := s.createSinks(ctx, info)
	if err != nil {
		src.Close()
		return VideoStats{Stream: info}, err
	}

	vs := NewVideoSession(s.scrambler, src, sinks)
	vs.SetDisplay(s.display)
	vs.SetQueueDepth(s.opts.QueueDepth)
	vs.SetTimeProvider(s.timeProvider)
	if paced {
		vs.SetPacing(s.opts.FrameInterval)
	}
	return vs.Run(ctx)
}

// createSinks opens all three outputs or none.
func (s *Session) createSinks(ctx context.Context, info media.StreamInfo) (Sinks, error) {
	var (
		sinks  Sinks
		opened []media.FrameSink
	)
	targets := []struct {
		role string
		dst  *media.FrameSink
	}{
		{RoleOriginal, &sinks.Original},
		{RoleEncoded, &sinks.Encoded},
		{RoleDecoded, &sinks.Decoded},
	}
	for _, t := range targets {
		path := s.opts.Paths.Video(t.role)
		sink, err := s.backend.Create(ctx, path, info, s.opts.Fourcc)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return Sinks{}, sessionError("open "+t.role+" writer", err)
		}
		*t.dst = sink
		opened = append(opened, sink)
	}
	return sinks, nil
}

// discard deletes the silent videos named in Options.Discard.
func (s *Session) discard() {
	for _, role := range s.opts.Discard {
		media.RemoveIfExists(s.opts.Paths.Video(role))
	}
}

func (s *Session) begin(kind, input string) *Report {
	report := &Report{
		Kind:    kind,
		Key:     s.key,
		Input:   input,
		Started: s.timeProvider.Now(),
	}
	logrus.WithFields(logrus.Fields{
		"function":   "Session.begin",
		"kind":       kind,
		"input":      input,
		"key":        s.key.String(),
		"key_source": s.keySource.String(),
	}).Info("Session started")
	return report
}

func (s *Session) finish(ctx context.Context, report *Report, errp *error) {
	report.Finished = s.timeProvider.Now()
	if report.videoDone {
		s.addVideoOutputs(report)
	}

	if s.recorder == nil {
		return
	}
	entry := &ledger.Session{
		Kind:      report.Kind,
		Key:       report.Key,
		KeySource: s.keySource.String(),
		Input:     report.Input,
		Started:   report.Started,
		Finished:  report.Finished,
		Frames:    report.Frames,
		Status:    ledger.StatusOK,
		Artifacts: artifacts(report.Outputs),
	}
	if *errp != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = (*errp).Error()
	}
	if _, err := s.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Session.finish",
			"error":    err.Error(),
		}).Warn("Failed to record session")
	}
}

// addVideoOutputs lists the silent videos that were kept.
func (s *Session) addVideoOutputs(report *Report) {
	discarded := make(map[string]bool, len(s.opts.Discard))
	for _, role := range s.opts.Discard {
		discarded[role] = true
	}
	var videos []Output
	for _, role := range []string{RoleOriginal, RoleEncoded, RoleDecoded} {
		if !discarded[role] {
			videos = append(videos, Output{Role: role, Media: "video", Path: s.opts.Paths.Video(role)})
		}
	}
	report.Outputs = append(videos, report.Outputs...)
}

func (r *Report) add(role, mediaKind, path string) {
	r.Outputs = append(r.Outputs, Output{Role: role, Media: mediaKind, Path: path})
}

// Duration returns how long the session ran.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// artifacts digests the outputs that exist on disk.
func artifacts(outputs []Output) []ledger.Artifact {
	var list []ledger.Artifact
	for _, o := range outputs {
		a, err := ledger.NewArtifact(o.Role+"-"+o.Media, o.Path)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "artifacts",
				"path":     o.Path,
				"error":    err.Error(),
			}).Debug("Skipping missing artifact")
			continue
		}
		list = append(list, a)
	}
	return list
}

// RecordAudio stores a standalone audio session that has just finished.
// The recorder stamps its finish time.
func RecordAudio(ctx context.Context, r Recorder, kind, input, output string, started time.Time, runErr error) error {
	entry := &ledger.Session{
		Kind:      kind,
		KeySource: "none",
		Input:     input,
		Started:   started,
		Status:    ledger.StatusOK,
	}
	if runErr != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = runErr.Error()
	} else {
		entry.Artifacts = artifacts([]Output{{Role: roleFor(kind), Media: "audio", Path: output}})
	}
	_, err := r.Record(ctx, entry)
	return err
}

func roleFor(kind string) string {
	if kind == KindAudioDecode {
		return RoleDecoded
	}
	return RoleEncoded
}
