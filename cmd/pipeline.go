package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/build"
	"github.com/initializ/pipeline-runner/config"
	"github.com/initializ/pipeline-runner/deploy"
	"github.com/initializ/pipeline-runner/internal/ui"
	"github.com/initializ/pipeline-runner/pipeline"
	"github.com/initializ/pipeline-runner/types"
	"github.com/initializ/pipeline-runner/validate"
	"github.com/initializ/pipeline-runner/verify"
)

var (
	pipelineConfig    string
	pipelineTag       string
	pipelineKeepGoing bool
	pipelineParallel  int
	pipelineReport    string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full build matrix from a pipeline config",
	Long: "pipeline builds, validates, and deploys every version and base image combination in " +
		"the config. The first failure stops the run unless --keep-going is set.",
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineConfig, "config", "pipeline.yaml", "pipeline config file (YAML, JSON, or JSONC)")
	pipelineCmd.Flags().StringVar(&pipelineTag, "tag", pipeline.DefaultTag, "image tag suffix")
	pipelineCmd.Flags().BoolVar(&pipelineKeepGoing, "keep-going", false, "run every cell and report all failures")
	pipelineCmd.Flags().IntVar(&pipelineParallel, "parallel", 1, "number of matrix cells to run at once")
	pipelineCmd.Flags().StringVar(&pipelineReport, "report", "", "write a JSON run report to this path")
}

// loadCheckedConfig loads a pipeline config and reports validation
// warnings and errors to diag. Invalid configs return an error.
func loadCheckedConfig(path string, diag *ui.Reporter) (*types.PipelineConfig, *validate.ValidationResult, error) {
	cfg, err := config.LoadPipelineConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	result := validate.ValidatePipelineConfig(cfg)
	for _, w := range result.Warnings {
		diag.Warning(w)
	}
	for _, e := range result.Errors {
		diag.Error(e)
	}
	if !result.IsValid() {
		return nil, result, fmt.Errorf("config validation failed: %d error(s)", len(result.Errors))
	}
	return cfg, result, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if pipelineParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	ctx := commandContext(cmd)
	rep := newReporter(cmd.OutOrStdout())

	cfg, _, err := loadCheckedConfig(pipelineConfig, newReporter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	cfg.App = resolveApp(cfg)

	tool, err := resolveTool()
	if err != nil {
		return err
	}
	exec := newExecutor(rep)

	validator, err := verify.NewValidator(tool, exec, cfg.Validation)
	if err != nil {
		return err
	}

	o := &pipeline.Orchestrator{
		Config: cfg,
		Builder: &build.ImageBuilder{
			App:               cfg.App,
			Tool:              tool,
			Exec:              exec,
			ContextDir:        workDir,
			PerCellDockerfile: pipelineParallel > 1,
		},
		Validator: validator,
		Deployer: &deploy.Deployer{
			Environments: cfg.Environments,
			Tool:         tool,
			Exec:         exec,
			Updater:      deploy.NewKubectl(cfg.App),
		},
		Tag:         pipelineTag,
		KeepGoing:   pipelineKeepGoing,
		Parallelism: pipelineParallel,
		Observer:    rep,
	}

	started := time.Now()
	summary, runErr := o.Run(ctx)

	if pipelineReport != "" {
		report := pipeline.NewRunReport(summary, runErr, tool.Name(), pipelineTag, started, time.Now())
		if err := pipeline.WriteReport(pipelineReport, report); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	return nil
}
