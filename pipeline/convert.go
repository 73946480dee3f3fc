package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/media"
)

// Convert kinds as stored in the ledger.
const (
	KindVideoEncode = "video-encode"
	KindVideoDecode = "video-decode"
)

// Convert applies one scramble direction to every frame of input and writes
// a single silent video to output. Decoding a previously encoded video with
// its key recovers the original rows.
func (s *Session) Convert(ctx context.Context, input, output string, dir video.Direction) (report *Report, err error) {
	kind, role := KindVideoEncode, RoleEncoded
	if dir == video.Decode {
		kind, role = KindVideoDecode, RoleDecoded
	}
	report = s.begin(kind, input)
	defer s.finish(ctx, report, &err)

	chain := video.NewEffectChain(video.NewScrambleEffect(s.scrambler, dir))

	src, err := s.backend.OpenFile(ctx, input)
	if err != nil {
		return report, sessionError("open source", err)
	}
	defer src.Close()

	sink, err := s.backend.Create(ctx, output, src.Info(), s.opts.Fourcc)
	if err != nil {
		return report, sessionError("open writer", err)
	}

	n, stopped, err := convertFrames(ctx, src, sink, chain)
	report.Frames = n
	report.Stopped = stopped
	if cerr := sink.Close(); err == nil {
		err = sessionError("close writer", cerr)
	}
	if err != nil {
		return report, err
	}
	report.add(role, "video", output)

	logrus.WithFields(logrus.Fields{
		"function": "Session.Convert",
		"effects":  chain.GetEffectCount(),
		"frames":   n,
		"stopped":  stopped,
		"output":   output,
	}).Info("Video converted")
	return report, nil
}

// convertFrames runs every frame through chain until the source ends or ctx
// is cancelled. A frame that was read is always written.
func convertFrames(ctx context.Context, src media.FrameSource, sink media.FrameSink, chain *video.EffectChain) (int, bool, error) {
	n := 0
	for {
		if ctx.Err() != nil {
			return n, true, nil
		}
		frame, err := src.Read()
		if errors.Is(err, io.EOF) {
			return n, false, nil
		}
		if err != nil {
			return n, false, sessionError("read frame", err)
		}
		out, err := chain.Apply(frame)
		if err != nil {
			return n, false, sessionError("scramble frame", err)
		}
		if err := sink.Write(out); err != nil {
			return n, false, sessionError("write frame", err)
		}
		n++
	}
}
