package key

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// Prompter asks an operator for a key. Returned strings are parsed by the
// Resolver; blank or malformed answers count as absent.
type Prompter interface {
	// Interactive reports whether a prompt can be shown at all.
	Interactive() bool
	// PromptKey returns the raw offset and step answers.
	PromptKey() (offset, step string, err error)
}

// TerminalPrompter reads the key from a terminal with line editing.
type TerminalPrompter struct {
	stdin  *os.File
	stdout io.Writer
}

// NewTerminalPrompter prompts on the process's standard streams.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{stdin: os.Stdin, stdout: os.Stdout}
}

// Interactive reports whether stdin is a terminal.
func (p *TerminalPrompter) Interactive() bool {
	return p.stdin != nil && term.IsTerminal(int(p.stdin.Fd()))
}

// PromptKey reads the offset then the step. An empty line for either is
// returned as-is and later treated as absent.
func (p *TerminalPrompter) PromptKey() (string, string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: fmt.Sprintf("offset [0-%d, empty for random]: ", MaxOffset),
		Stdin:  p.stdin,
		Stdout: p.stdout,
	})
	if err != nil {
		return "", "", fmt.Errorf("initialize prompt: %w", err)
	}
	defer rl.Close()

	offset, err := rl.Readline()
	if err != nil {
		return "", "", fmt.Errorf("read offset: %w", err)
	}
	if offset == "" {
		return "", "", nil
	}

	rl.SetPrompt(fmt.Sprintf("step [0-%d]: ", MaxStep))
	step, err := rl.Readline()
	if err != nil {
		return "", "", fmt.Errorf("read step: %w", err)
	}
	return offset, step, nil
}
