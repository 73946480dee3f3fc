// Command avscramble scrambles video rows and audio envelopes with a
// reversible keyed transform and writes the original, encoded and decoded
// results side by side.
//
// Usage:
//
//	avscramble [global flags] video [flags] <input> [offset step]
//	avscramble [global flags] camera [flags] [offset step]
//	avscramble [global flags] convert [flags] <input> [offset step]
//	avscramble [global flags] audio encode|decode [flags] <input>
//	avscramble [global flags] play <file>
//	avscramble [global flags] history [flags]
//
// Every flag may also be set through an AVSCRAMBLE_ prefixed environment
// variable (AVSCRAMBLE_LOG_LEVEL=debug) or a plain "name value" config file
// passed with -config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/pipeline"
)

// Exit codes.
const (
	exitOK           = 0
	exitSessionError = 1
	exitProcessError = 2
)

// setupSignalHandling cancels ctx on interrupt so the current session can
// finish its in-flight frame and release its outputs.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logrus.WithField("signal", sig.String()).Info("Stopping session")
		cancel()
	}()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := newApp()
	root := a.rootCommand()

	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "avscramble: %v\n", err)
		return exitSessionError
	}
	if err := configureLogging(a.cfg.logLevel, a.cfg.logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "avscramble: %v\n", err)
		return exitProcessError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	err := root.Run(ctx)
	a.close()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
		return exitSessionError
	case pipeline.IsFatal(err):
		logrus.WithField("error", err.Error()).Error("Fatal error")
		return exitProcessError
	default:
		logrus.WithField("error", err.Error()).Error("Session failed")
		return exitSessionError
	}
}
