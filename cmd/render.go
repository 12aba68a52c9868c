package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/export"
)

var (
	renderConfig string
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the config's declared stages as a Jenkinsfile",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderConfig, "config", "pipeline.yaml", "pipeline config file")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "Jenkinsfile", "output path, or - for stdout")
}

func runRender(cmd *cobra.Command, args []string) error {
	diag := newReporter(cmd.ErrOrStderr())

	cfg, _, err := loadCheckedConfig(renderConfig, diag)
	if err != nil {
		return err
	}

	v := export.ValidateForJenkins(cfg)
	for _, w := range v.Warnings {
		diag.Warning(w)
	}
	for _, e := range v.Errors {
		diag.Error(e)
	}
	if len(v.Errors) > 0 {
		return fmt.Errorf("export validation failed: %d error(s)", len(v.Errors))
	}

	data, err := export.RenderJenkinsfile(cfg)
	if err != nil {
		return err
	}

	if renderOutput == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(renderOutput, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", renderOutput, err)
	}

	newReporter(cmd.OutOrStdout()).Success("Jenkinsfile written to " + renderOutput)
	return nil
}
