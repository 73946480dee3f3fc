package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/pipeline"
)

// globalConfig holds flags shared by every subcommand.
type globalConfig struct {
	logLevel   string
	logFormat  string
	configFile string
	ledgerPath string
	outDir     string
}

// configureLogging sets the logrus level and formatter.
func configureLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q: use text or json", format)
	}
	return nil
}

// parseList splits a comma separated flag value.
func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// applyOutDir places every default output and the key record under dir.
func applyOutDir(opts *pipeline.Options, dir string) {
	if dir == "" {
		return
	}
	p := &opts.Paths
	for _, field := range []*string{
		&p.OriginalVideo, &p.EncodedVideo, &p.DecodedVideo,
		&p.OriginalAudio, &p.EncodedAudio, &p.DecodedAudio,
		&p.OriginalMuxed, &p.EncodedMuxed, &p.DecodedMuxed,
		&opts.KeyRecordPath,
	} {
		*field = filepath.Join(dir, *field)
	}
}
