package highlight

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// The driver keeps the interpreter contract in one place: code on stdin,
// HTML on stdout, exit 3 for an unknown lexer.
//
//go:embed pygmentize.py
var pygmentsDriver string

const exitUnknownLexer = 3

// PygmentsEngine highlights by piping code through an external Python
// interpreter running the embedded pygments driver. One process per block;
// the interpreter is resolved once at construction.
type PygmentsEngine struct {
	executable string
	opts       Options
}

// NewPygmentsEngine resolves the configured interpreter and returns the
// engine. A missing interpreter is reported as ErrEngineUnavailable.
func NewPygmentsEngine(opts Options) (*PygmentsEngine, error) {
	exe := opts.Executable
	if exe == "" {
		exe = DefaultOptions().Executable
	}
	if opts.CSSClass == "" {
		opts.CSSClass = DefaultOptions().CSSClass
	}
	path, err := exec.LookPath(exe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exe, ErrEngineUnavailable)
	}
	return &PygmentsEngine{executable: path, opts: opts}, nil
}

func (e *PygmentsEngine) Highlight(ctx context.Context, lang, code string) (string, error) {
	linenos := "0"
	if e.opts.LineNumbers {
		linenos = "1"
	}

	cmd := exec.CommandContext(ctx, e.executable, "-c", pygmentsDriver, lang, linenos, e.opts.CSSClass)
	cmd.Stdin = strings.NewReader(code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exitUnknownLexer {
			return "", fmt.Errorf("%s: %w", lang, ErrUnknownLanguage)
		}
		return "", fmt.Errorf("pygments: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
