// Package cmd implements the pipeline-runner CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/internal/ui"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

var (
	verbose       bool
	themeOverride string
	appName       string
	builderName   string
	workDir       string
)

var rootCmd = &cobra.Command{
	Use:   "pipeline-runner",
	Short: "Build, test, and deploy container images across a version matrix",
	Long: "pipeline-runner builds a container image for every version and base image in a pipeline " +
		"config, runs the test suite and a vulnerability scan against it, and deploys it to the " +
		"environment chosen for its version.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&themeOverride, "theme", "", "color theme: dark, light, or auto")
	rootCmd.PersistentFlags().StringVar(&appName, "app", "", "application name (default from config, else "+types.DefaultApp+")")
	rootCmd.PersistentFlags().StringVar(&builderName, "builder", "docker", "container tool: docker, podman, or auto")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", ".", "build context directory; commands run here")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(reportCmd)
}

// newExecutor creates the executor every command runs external tools with.
var newExecutor = func(narrator shell.Narrator) shell.Executor {
	return shell.NewLocal(shell.WithDir(workDir), shell.WithNarrator(narrator))
}

func newReporter(w io.Writer) *ui.Reporter {
	return ui.NewReporter(w, ui.DetectTheme(themeOverride), verbose)
}

// commandContext returns the command's context carrying the CLI logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctxlog.WithLogger(ctx, ctxlog.NewCommandLogger(cmd.ErrOrStderr(), verbose))
}

func resolveTool() (container.Tool, error) {
	if builderName == "auto" {
		tool := container.Detect()
		if tool == nil {
			return nil, fmt.Errorf("no container tool found (tried docker, podman)")
		}
		return tool, nil
	}
	tool := container.Get(builderName)
	if tool == nil {
		return nil, fmt.Errorf("unknown builder %q (use docker, podman, or auto)", builderName)
	}
	return tool, nil
}

// resolveApp picks the application name: --app, then the config, then the
// default.
func resolveApp(cfg *types.PipelineConfig) string {
	if appName != "" {
		return appName
	}
	if cfg != nil && cfg.App != "" {
		return cfg.App
	}
	return types.DefaultApp
}

// SetVersionInfo sets the version and commit for display.
func SetVersionInfo(version, commit string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("pipeline-runner %s (commit: %s)\n", version, commit))
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints the final error. Command stderr was already narrated
// when the command failed, so it is left out here.
func reportError(w io.Writer, err error) {
	newReporter(w).Error(shell.Brief(err))
}
