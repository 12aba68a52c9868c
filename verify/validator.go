// Package verify runs the test suite and a vulnerability scan against a
// built image.
package verify

import (
	"context"
	"fmt"

	"github.com/buildkite/shellwords"

	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

// Scanner renders the vulnerability scan command for an artifact.
type Scanner interface {
	ScanCommand(tool container.Tool, artifact types.ArtifactID) string
}

// Validator checks a built image: first the test suite runs inside a
// container from the image, then the scanner runs. A failed test run means
// the scan is never attempted.
type Validator struct {
	Tool        container.Tool
	Exec        shell.Executor
	TestCommand []string
	Scanner     Scanner
}

// NewValidator builds a Validator from the validation section of a
// pipeline config.
func NewValidator(tool container.Tool, exec shell.Executor, ref types.ValidationRef) (*Validator, error) {
	testCmd := ref.TestCommand
	if testCmd == "" {
		testCmd = types.DefaultTestCommand
	}
	args, err := ParseTestCommand(testCmd)
	if err != nil {
		return nil, err
	}
	return &Validator{
		Tool:        tool,
		Exec:        exec,
		TestCommand: args,
		Scanner:     &Trivy{Image: ref.ScannerImage},
	}, nil
}

// ParseTestCommand splits a test command into container arguments. The
// command runs inside a Linux image, so POSIX rules apply on every host.
func ParseTestCommand(s string) ([]string, error) {
	args, err := shellwords.SplitPosix(s)
	if err != nil {
		return nil, fmt.Errorf("parsing test command %q: %w", s, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("test command is empty")
	}
	return args, nil
}

// Validate runs the tests and then the scan. Both steps report failure
// only through exit codes; the first failure is returned unchanged.
func (v *Validator) Validate(ctx context.Context, artifact types.ArtifactID) error {
	logger := ctxlog.FromContext(ctx).With("artifact", artifact)

	testCmd := v.TestCommand
	if len(testCmd) == 0 {
		testCmd, _ = ParseTestCommand(types.DefaultTestCommand)
	}

	logger.Debug("running tests")
	if _, err := v.Exec.Run(ctx, v.Tool.RunCommand(container.RunOptions{
		Image: artifact.String(),
		Args:  testCmd,
	})); err != nil {
		return err
	}

	scanner := v.Scanner
	if scanner == nil {
		scanner = &Trivy{}
	}

	logger.Debug("scanning image")
	if _, err := v.Exec.Run(ctx, scanner.ScanCommand(v.Tool, artifact)); err != nil {
		return err
	}
	return nil
}
