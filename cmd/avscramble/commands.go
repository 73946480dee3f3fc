package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/av/audio"
	"github.com/opd-ai/avscramble/av/video"
	"github.com/opd-ai/avscramble/key"
	"github.com/opd-ai/avscramble/ledger"
	"github.com/opd-ai/avscramble/media"
	"github.com/opd-ai/avscramble/pipeline"
	"github.com/opd-ai/avscramble/preview"
)

// player plays a decoded audio buffer.
type player interface {
	Play(ctx context.Context, buf *audio.Buffer) error
	Close() error
}

func newAudioPlayer(sampleRate, channels int) (player, error) {
	p, err := audio.NewPlayer(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// app wires the command line to the session packages.
type app struct {
	cfg       globalConfig
	opts      *pipeline.Options
	stdout    io.Writer
	store     *ledger.Store
	newPlayer func(sampleRate, channels int) (player, error)

	// Subcommand flag values.
	discard       string
	videoPreview  bool
	cameraPreview bool
	direction     string
	convertOut    string
	limit         int
	sessionID     int64
	verify        bool
}

func newApp() *app {
	return &app{opts: pipeline.NewOptions(), stdout: os.Stdout, newPlayer: newAudioPlayer}
}

// ffOptions binds flags to AVSCRAMBLE_* variables and the shared config
// file named by the root -config flag.
func (a *app) ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix("AVSCRAMBLE"),
		ff.WithConfigFileVia(&a.cfg.configFile),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
		ff.WithIgnoreUndefined(true),
	}
}

func (a *app) rootCommand() *ffcli.Command {
	fs := flag.NewFlagSet("avscramble", flag.ContinueOnError)
	fs.StringVar(&a.cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&a.cfg.logFormat, "log-format", "text", "log format (text or json)")
	fs.StringVar(&a.cfg.configFile, "config", "", "config file with one \"flag value\" per line")
	fs.StringVar(&a.cfg.ledgerPath, "ledger", ledger.DefaultPath, "session history database, empty to disable")
	fs.StringVar(&a.cfg.outDir, "out-dir", "", "directory for outputs and the key record")

	return &ffcli.Command{
		Name:       "avscramble",
		ShortUsage: "avscramble [flags] <subcommand> [flags] [args...]",
		ShortHelp:  "Keyed row scrambling for video and envelope scrambling for audio.",
		FlagSet:    fs,
		Options: []ff.Option{
			ff.WithEnvVarPrefix("AVSCRAMBLE"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithAllowMissingConfigFile(true),
			ff.WithIgnoreUndefined(true),
		},
		Subcommands: []*ffcli.Command{
			a.videoCommand(),
			a.cameraCommand(),
			a.convertCommand(),
			a.audioCommand(),
			a.playCommand(),
			a.historyCommand(),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}

func (a *app) videoFlags(fs *flag.FlagSet) {
	fs.StringVar(&a.opts.Backend, "backend", a.opts.Backend, fmt.Sprintf("media backend %v", media.Backends()))
	fs.StringVar(&a.opts.Fourcc, "fourcc", a.opts.Fourcc, "output codec fourcc")
	fs.IntVar(&a.opts.QueueDepth, "queue-depth", a.opts.QueueDepth, "frames buffered between capture and processing")
	fs.DurationVar(&a.opts.FrameInterval, "interval", a.opts.FrameInterval, "capture pacing interval")
	fs.StringVar(&a.discard, "discard", "", "comma separated silent videos to delete afterwards (original,encoded,decoded)")
}

func (a *app) videoCommand() *ffcli.Command {
	fs := flag.NewFlagSet("avscramble video", flag.ContinueOnError)
	a.videoFlags(fs)
	fs.BoolVar(&a.opts.Realtime, "realtime", false, "pace file processing at the capture interval")
	fs.BoolVar(&a.videoPreview, "preview", false, "show the three streams in a window")

	return &ffcli.Command{
		Name:       "video",
		ShortUsage: "avscramble video [flags] <input> [offset step]",
		ShortHelp:  "Scramble a video file and its audio track.",
		FlagSet:    fs,
		Options:    a.ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return flag.ErrHelp
			}
			input := args[0]
			return a.runSession(ctx, args[1:], a.videoPreview, func(ctx context.Context, s *pipeline.Session) (*pipeline.Report, error) {
				return s.ProcessFile(ctx, input)
			})
		},
	}
}

func (a *app) cameraCommand() *ffcli.Command {
	fs := flag.NewFlagSet("avscramble camera", flag.ContinueOnError)
	a.videoFlags(fs)
	cam := &a.opts.Camera
	fs.StringVar(&cam.Device, "device", cam.Device, "capture device path or index")
	fs.StringVar(&cam.Format, "input-format", cam.Format, "ffmpeg input format of the device")
	fs.IntVar(&cam.Width, "width", cam.Width, "capture width")
	fs.IntVar(&cam.Height, "height", cam.Height, "capture height")
	fs.Float64Var(&cam.FPS, "fps", cam.FPS, "capture frame rate")
	fs.BoolVar(&a.cameraPreview, "preview", true, "show the three streams in a window")

	return &ffcli.Command{
		Name:       "camera",
		ShortUsage: "avscramble camera [flags] [offset step]",
		ShortHelp:  "Capture from a camera until interrupted or the window is closed.",
		FlagSet:    fs,
		Options:    a.ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			return a.runSession(ctx, args, a.cameraPreview, func(ctx context.Context, s *pipeline.Session) (*pipeline.Report, error) {
				return s.Capture(ctx)
			})
		},
	}
}

func (a *app) convertCommand() *ffcli.Command {
	fs := flag.NewFlagSet("avscramble convert", flag.ContinueOnError)
	fs.StringVar(&a.direction, "direction", video.Decode.String(), "encode or decode")
	fs.StringVar(&a.convertOut, "o", "", "output video (default the encoded or decoded video path)")
	fs.StringVar(&a.opts.Backend, "backend", a.opts.Backend, fmt.Sprintf("media backend %v", media.Backends()))
	fs.StringVar(&a.opts.Fourcc, "fourcc", a.opts.Fourcc, "output codec fourcc")

	return &ffcli.Command{
		Name:       "convert",
		ShortUsage: "avscramble convert [flags] <input> [offset step]",
		ShortHelp:  "Scramble or unscramble the rows of one video with a known key.",
		FlagSet:    fs,
		Options:    a.ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return flag.ErrHelp
			}
			dir, err := video.ParseDirection(a.direction)
			if err != nil {
				return err
			}
			input, output := args[0], a.convertOut
			if output == "" {
				role := pipeline.RoleEncoded
				if dir == video.Decode {
					role = pipeline.RoleDecoded
				}
				output = a.paths().Video(role)
			}
			return a.runSession(ctx, args[1:], false, func(ctx context.Context, s *pipeline.Session) (*pipeline.Report, error) {
				return s.Convert(ctx, input, output, dir)
			})
		},
	}
}

func (a *app) audioCommand() *ffcli.Command {
	sub := func(name, help, defaultOut, kind string, apply func(*pipeline.AudioSession, string, string) error) *ffcli.Command {
		fs := flag.NewFlagSet("avscramble audio "+name, flag.ContinueOnError)
		out := fs.String("o", "", "output WAV file (default "+defaultOut+")")
		return &ffcli.Command{
			Name:       name,
			ShortUsage: "avscramble audio " + name + " [flags] <input>",
			ShortHelp:  help,
			FlagSet:    fs,
			Options:    a.ffOptions(),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return flag.ErrHelp
				}
				output := *out
				if output == "" {
					output = a.paths().EncodedAudio
					if kind == pipeline.KindAudioDecode {
						output = a.paths().DecodedAudio
					}
				}
				return a.runAudio(ctx, kind, args[0], output, apply)
			},
		}
	}

	defaults := pipeline.DefaultPaths()
	return &ffcli.Command{
		Name:       "audio",
		ShortUsage: "avscramble audio encode|decode [flags] <input>",
		ShortHelp:  "Scramble or unscramble a WAV or FLAC file.",
		Subcommands: []*ffcli.Command{
			sub("encode", "Low-pass and modulate an audio file.", defaults.EncodedAudio, pipeline.KindAudioEncode,
				(*pipeline.AudioSession).EncodeFile),
			sub("decode", "Apply the decode filter to an audio file.", defaults.DecodedAudio, pipeline.KindAudioDecode,
				(*pipeline.AudioSession).DecodeFile),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}

func (a *app) playCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "play",
		ShortUsage: "avscramble play <file>",
		ShortHelp:  "Play a WAV or FLAC file.",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			buf, err := audio.ReadFile(args[0])
			if err != nil {
				return &pipeline.Error{Op: "play", Severity: pipeline.AbortSession, Err: err}
			}
			p, err := a.newPlayer(buf.SampleRate, buf.NumChannels())
			if err != nil {
				return &pipeline.Error{Op: "play", Severity: pipeline.AbortProcess, Err: err}
			}
			defer p.Close()
			// Interrupting playback is a normal stop.
			if err := p.Play(ctx, buf); err != nil && !errors.Is(err, context.Canceled) {
				return &pipeline.Error{Op: "play", Severity: pipeline.AbortSession, Err: err}
			}
			return nil
		},
	}
}

func (a *app) historyCommand() *ffcli.Command {
	fs := flag.NewFlagSet("avscramble history", flag.ContinueOnError)
	fs.IntVar(&a.limit, "limit", 20, "number of sessions to show, 0 for all")
	fs.Int64Var(&a.sessionID, "id", 0, "show only the session with this id")
	fs.BoolVar(&a.verify, "verify", false, "check artifacts against their recorded digests")

	return &ffcli.Command{
		Name:       "history",
		ShortUsage: "avscramble history [flags]",
		ShortHelp:  "List recorded sessions.",
		FlagSet:    fs,
		Options:    a.ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			store, err := a.ledger()
			if err != nil {
				return err
			}
			if store == nil {
				return &pipeline.Error{Op: "history", Severity: pipeline.AbortProcess,
					Err: fmt.Errorf("%w: ledger disabled", pipeline.ErrInvalidOptions)}
			}
			var sessions []*ledger.Session
			if a.sessionID > 0 {
				sess, err := store.Session(ctx, a.sessionID)
				if err != nil {
					return &pipeline.Error{Op: "history", Severity: pipeline.AbortSession, Err: err}
				}
				sessions = append(sessions, sess)
			} else if sessions, err = store.Sessions(ctx, a.limit); err != nil {
				return &pipeline.Error{Op: "history", Severity: pipeline.AbortSession, Err: err}
			}
			printHistory(a.stdout, sessions, a.verify)
			return nil
		},
	}
}

// paths returns the output paths after -out-dir is applied.
func (a *app) paths() pipeline.Paths {
	opts := *a.opts
	opts.Paths = pipeline.DefaultPaths()
	applyOutDir(&opts, a.cfg.outDir)
	return opts.Paths
}

// ledger opens the history store once. It returns nil when disabled.
func (a *app) ledger() (*ledger.Store, error) {
	if a.store != nil || a.cfg.ledgerPath == "" {
		return a.store, nil
	}
	store, err := ledger.Open(a.cfg.ledgerPath)
	if err != nil {
		return nil, &pipeline.Error{Op: "open ledger", Severity: pipeline.AbortProcess, Err: err}
	}
	a.store = store
	return store, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

type sessionFunc func(ctx context.Context, s *pipeline.Session) (*pipeline.Report, error)

func (a *app) runSession(ctx context.Context, keyArgs []string, withPreview bool, run sessionFunc) error {
	applyOutDir(a.opts, a.cfg.outDir)
	a.opts.Discard = parseList(a.discard)

	k, source := key.NewResolver(keyArgs, key.NewTerminalPrompter()).Resolve()
	fmt.Fprintf(a.stdout, "%s (%s)\n", key.Record(k), source)

	transcoder := media.NewTranscoder()
	backend, err := media.NewBackend(a.opts.Backend, transcoder)
	if err != nil {
		return &pipeline.Error{Op: "select backend", Severity: pipeline.AbortProcess, Err: err}
	}
	session, err := pipeline.NewSession(k, source, a.opts, backend, transcoder)
	if err != nil {
		return err
	}

	store, err := a.ledger()
	if err != nil {
		return err
	}
	if store != nil {
		session.SetRecorder(store)
	}

	var report *pipeline.Report
	if withPreview {
		win := preview.NewWindow("avscramble " + k.String())
		session.SetDisplay(win)
		err = win.Run(ctx, func(ctx context.Context) error {
			var runErr error
			report, runErr = run(ctx, session)
			return runErr
		})
	} else {
		report, err = run(ctx, session)
	}
	if report != nil {
		printReport(a.stdout, report)
	}
	return err
}

func (a *app) runAudio(ctx context.Context, kind, input, output string, apply func(*pipeline.AudioSession, string, string) error) error {
	started := time.Now()
	err := apply(pipeline.NewAudioSession(), input, output)

	store, lerr := a.ledger()
	if lerr != nil {
		return lerr
	}
	if store != nil {
		if rerr := pipeline.RecordAudio(ctx, store, kind, input, output, started, err); rerr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "app.runAudio",
				"error":    rerr.Error(),
			}).Warn("Failed to record session")
		}
	}
	if err == nil {
		fmt.Fprintf(a.stdout, "%s -> %s\n", input, output)
	}
	return err
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "%s session %s: %d frames in %v", r.Kind, r.Key, r.Frames, r.Duration().Round(time.Millisecond))
	if r.Stopped {
		fmt.Fprint(w, " (stopped)")
	}
	fmt.Fprintln(w)
	for _, o := range r.Outputs {
		fmt.Fprintf(w, "  %-8s %-5s %s\n", o.Role, o.Media, o.Path)
	}
}

func printHistory(w io.Writer, sessions []*ledger.Session, verify bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tKIND\tKEY\tSOURCE\tFRAMES\tSTATUS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", s.ID,
			s.Started.Format(time.DateTime), s.Kind, s.Key, s.KeySource, s.Frames, s.Status)
		for _, art := range s.Artifacts {
			mark := ""
			if verify {
				ok, err := art.Verify()
				switch {
				case err != nil:
					mark = "missing"
				case ok:
					mark = "ok"
				default:
					mark = "modified"
				}
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%.12s\t\t%s\n", art.Role, art.Path, humanSize(art.Size), art.Digest, mark)
		}
	}
	tw.Flush()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
