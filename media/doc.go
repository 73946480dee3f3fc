// Package media is the I/O boundary of the scrambler: it produces frames
// from video files and cameras, writes frames to encoded containers, and
// drives an external transcoder to move audio tracks in and out of
// containers.
//
// # Frame Sources and Sinks
//
// A FrameSource yields video.Frame values until io.EOF; a FrameSink
// accepts them. A Backend opens both:
//
//	backend := media.NewFFmpegBackend(media.NewTranscoder())
//	src, err := backend.OpenFile(ctx, "input.mp4")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// The default backend runs ffmpeg as a subprocess exchanging rawvideo bgr24
// over pipes. Building with the gocv tag adds an "opencv" backend based on
// gocv.io/x/gocv.
//
// Sources stop with their context. Sinks do not: closing a sink lets the
// encoder write its trailer, so a cancelled session still leaves playable
// files.
//
// # Transcoder
//
// Transcoder extracts an audio track into a WAV file, muxes a WAV file onto
// a silent video, and probes stream geometry. Every invocation checks the
// tool's exit status and reports failures as *ToolError.
package media
