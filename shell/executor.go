// Package shell runs external commands through the host's command
// interpreter and captures their output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/initializ/pipeline-runner/internal/ctxlog"
)

// Executor runs one command line and returns its standard output. A command
// that exits nonzero fails with *ExecutionError.
type Executor interface {
	Run(ctx context.Context, commandLine string) (string, error)
}

// Result is the captured outcome of one command.
type Result struct {
	Succeeded bool
	ExitCode  int
	Stdout    string
	Stderr    string
}

// ExecutionError reports a command that exited nonzero.
type ExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return e.brief()
	}
	return e.brief() + ": " + msg
}

func (e *ExecutionError) brief() string {
	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, e.Command)
}

// Brief renders err with the standard error of every *ExecutionError in
// its tree left out. Use it where the narrator has already shown stderr.
func Brief(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, e := range executionErrors(err) {
		msg = strings.Replace(msg, e.Error(), e.brief(), 1)
	}
	return msg
}

func executionErrors(err error) []*ExecutionError {
	switch e := err.(type) {
	case *ExecutionError:
		return []*ExecutionError{e}
	case interface{ Unwrap() []error }:
		var out []*ExecutionError
		for _, inner := range e.Unwrap() {
			out = append(out, executionErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		if inner := e.Unwrap(); inner != nil {
			return executionErrors(inner)
		}
	}
	return nil
}

// Narrator is told about each command as it runs.
type Narrator interface {
	CommandStarted(commandLine string)
	CommandSucceeded(commandLine, stdout string)
	CommandFailed(commandLine, stderr string)
}

// Interpreter returns the command interpreter invocation for goos: cmd /C
// on Windows, sh -c everywhere else.
func Interpreter(goos string) []string {
	if goos == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Local runs commands on this machine. It waits for each command to exit;
// there is no timeout and no retry.
type Local struct {
	interpreter []string
	dir         string
	env         []string
	narrator    Narrator
}

// Option configures a Local executor.
type Option func(*Local)

// WithDir sets the working directory commands run in.
func WithDir(dir string) Option { return func(l *Local) { l.dir = dir } }

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) Option { return func(l *Local) { l.env = append(l.env, env...) } }

// WithNarrator reports command progress to n.
func WithNarrator(n Narrator) Option { return func(l *Local) { l.narrator = n } }

// WithInterpreter overrides the interpreter chosen for the host OS.
func WithInterpreter(argv ...string) Option { return func(l *Local) { l.interpreter = argv } }

// NewLocal creates a Local executor for the host OS.
func NewLocal(opts ...Option) *Local {
	l := &Local{interpreter: Interpreter(runtime.GOOS)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Capture runs commandLine and returns its result. The error is non-nil
// only when the process could not be started or was cancelled; a nonzero
// exit is reported through Result.
func (l *Local) Capture(ctx context.Context, commandLine string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	args := append(append([]string{}, l.interpreter[1:]...), commandLine)
	cmd := exec.CommandContext(ctx, l.interpreter[0], args...)
	cmd.Dir = l.dir
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running command", "command", commandLine, "dir", l.dir)
	start := time.Now()
	err := cmd.Run()

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Succeeded = true
	case ctx.Err() != nil:
		return res, fmt.Errorf("running %q: %w", commandLine, ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("starting %q: %w", commandLine, err)
	}

	logger.Debug("command finished",
		"command", commandLine,
		"exit_code", res.ExitCode,
		"duration", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return res, nil
}

// Run runs commandLine and returns its standard output. A nonzero exit
// yields *ExecutionError carrying the captured standard error.
func (l *Local) Run(ctx context.Context, commandLine string) (string, error) {
	if l.narrator != nil {
		l.narrator.CommandStarted(commandLine)
	}

	res, err := l.Capture(ctx, commandLine)
	if err != nil {
		if l.narrator != nil {
			l.narrator.CommandFailed(commandLine, err.Error())
		}
		return "", err
	}

	if !res.Succeeded {
		if l.narrator != nil {
			l.narrator.CommandFailed(commandLine, res.Stderr)
		}
		return "", &ExecutionError{
			Command:  commandLine,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	if l.narrator != nil {
		l.narrator.CommandSucceeded(commandLine, res.Stdout)
	}
	return res.Stdout, nil
}
