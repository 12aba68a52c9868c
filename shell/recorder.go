package shell

import (
	"context"
	"strings"
	"sync"
)

// Recorder is an Executor that records command lines instead of running
// them. Commands containing a registered failure substring fail with
// *ExecutionError. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	commands  []string
	failures  []canned
	responses []canned
}

type canned struct {
	match  string
	output string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailOn makes every command containing match exit 1 with stderr.
func (r *Recorder) FailOn(match, stderr string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, canned{match: match, output: stderr})
	return r
}

// RespondTo makes every command containing match print stdout.
func (r *Recorder) RespondTo(match, stdout string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, canned{match: match, output: stdout})
	return r
}

// Run records commandLine and returns the canned outcome.
func (r *Recorder) Run(ctx context.Context, commandLine string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, commandLine)

	for _, f := range r.failures {
		if strings.Contains(commandLine, f.match) {
			return "", &ExecutionError{Command: commandLine, ExitCode: 1, Stderr: f.output}
		}
	}
	for _, resp := range r.responses {
		if strings.Contains(commandLine, resp.match) {
			return resp.output, nil
		}
	}
	return "", nil
}

// Commands returns the recorded command lines in call order.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Count returns how many recorded commands contain match.
func (r *Recorder) Count(match string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if strings.Contains(c, match) {
			n++
		}
	}
	return n
}
