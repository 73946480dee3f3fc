package key

import (
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// Source identifies which precedence level produced a key.
type Source uint8

const (
	// SourceCommandLine is a key given as offset and step arguments.
	SourceCommandLine Source = iota
	// SourceInteractive is a key typed at the terminal prompt.
	SourceInteractive
	// SourceRandom is a key drawn because no usable key was supplied.
	SourceRandom
)

// String returns the source name for logs and the session ledger.
func (s Source) String() string {
	switch s {
	case SourceCommandLine:
		return "command-line"
	case SourceInteractive:
		return "interactive"
	case SourceRandom:
		return "random"
	default:
		return "unknown"
	}
}

// RandomSource draws uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// Resolver picks the session key from, in order, command-line arguments, an
// interactive prompt, and a random draw.
type Resolver struct {
	args     []string
	prompter Prompter
	random   RandomSource
}

// NewResolver creates a resolver over the positional command-line arguments.
// Only the first two arguments are considered. prompter may be nil.
func NewResolver(args []string, prompter Prompter) *Resolver {
	return &Resolver{
		args:     args,
		prompter: prompter,
		random:   globalRandom{},
	}
}

// SetRandomSource replaces the random source, mainly for tests.
func (r *Resolver) SetRandomSource(src RandomSource) {
	r.random = src
}

// Resolve returns the session key and the level it came from. It never
// fails: unusable input at one level falls through to the next.
func (r *Resolver) Resolve() (Key, Source) {
	if k, ok := r.fromArgs(); ok {
		r.logResolved(k, SourceCommandLine)
		return k, SourceCommandLine
	}

	if k, ok := r.fromPrompt(); ok {
		r.logResolved(k, SourceInteractive)
		return k, SourceInteractive
	}

	k := Key{
		Offset: r.random.IntN(MaxOffset + 1),
		Step:   r.random.IntN(MaxStep + 1),
	}
	r.logResolved(k, SourceRandom)
	return k, SourceRandom
}

func (r *Resolver) fromArgs() (Key, bool) {
	if len(r.args) < 2 {
		return Key{}, false
	}
	k, ok := FromStrings(r.args[0], r.args[1])
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Resolver.fromArgs",
			"offset":   r.args[0],
			"step":     r.args[1],
		}).Debug("Ignoring unusable command-line key")
	}
	return k, ok
}

func (r *Resolver) fromPrompt() (Key, bool) {
	if r.prompter == nil || !r.prompter.Interactive() {
		return Key{}, false
	}
	offset, step, err := r.prompter.PromptKey()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Resolver.fromPrompt",
			"error":    err.Error(),
		}).Debug("Interactive key entry unavailable")
		return Key{}, false
	}
	k, ok := FromStrings(offset, step)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Resolver.fromPrompt",
			"offset":   offset,
			"step":     step,
		}).Debug("Ignoring unusable interactive key")
	}
	return k, ok
}

func (r *Resolver) logResolved(k Key, src Source) {
	logrus.WithFields(logrus.Fields{
		"function": "Resolver.Resolve",
		"offset":   k.Offset,
		"step":     k.Step,
		"source":   src.String(),
	}).Info("Scramble key resolved")
}
