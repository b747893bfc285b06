package cliui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrNotInteractive is returned by prompts when stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prompter reads single lines of input through readline.
type Prompter struct {
	stdin  io.ReadCloser
	stdout io.Writer

	interactive bool
}

// NewPrompter returns a Prompter on the process's stdin and stdout.
func NewPrompter() *Prompter {
	return &Prompter{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		interactive: IsTerminal(os.Stdin),
	}
}

// NewPrompterWith returns a Prompter over the given streams. The streams are
// treated as interactive.
func NewPrompterWith(stdin io.ReadCloser, stdout io.Writer) *Prompter {
	return &Prompter{stdin: stdin, stdout: stdout, interactive: true}
}

// Interactive reports whether the prompter can ask questions.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Line shows prompt and returns the trimmed line typed in reply.
func (p *Prompter) Line(prompt string) (string, error) {
	if !p.interactive {
		return "", ErrNotInteractive
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           p.stdin,
		Stdout:          p.stdout,
		HistoryLimit:    -1,
		InterruptPrompt: "^C",
		FuncIsTerminal:  func() bool { return false },
	})
	if err != nil {
		return "", fmt.Errorf("opening prompt: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	line, err := rl.Readline()
	if err != nil {
		// io.EOF and readline.ErrInterrupt both mean no answer.
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// YesNo asks question and reports whether the answer was yes. Anything other
// than an explicit yes, including an interrupt, counts as no.
func (p *Prompter) YesNo(question string) (bool, error) {
	line, err := p.Line(fmt.Sprintf("%s %s ", question, DimStyle.Render("[y/N]")))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return IsYes(line), nil
}

// IsYes reports whether answer is an affirmative reply.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
