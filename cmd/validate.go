package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	validateConfig string
	strict         bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a pipeline config",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfig, "config", "pipeline.yaml", "pipeline config file")
	validateCmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	diag := newReporter(cmd.ErrOrStderr())

	cfg, result, err := loadCheckedConfig(validateConfig, diag)
	if err != nil {
		return err
	}

	if strict && len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d warning(s) treated as errors in strict mode", len(result.Warnings))
	}

	rep := newReporter(cmd.OutOrStdout())
	rep.Success(fmt.Sprintf("Validation passed: %s (%d matrix cell(s), %d environment(s))",
		cfg.Name, len(cfg.Cells()), len(cfg.Environments)))
	return nil
}
