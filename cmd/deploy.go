package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/deploy"
	"github.com/initializ/pipeline-runner/types"
)

var (
	deployImage       string
	deployEnvironment string
	deployConfig      string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Push an image and roll it out to an environment",
	Long: "deploy tags and pushes an image to the environment's registry and updates the running " +
		"deployment. Environments come from --config; without it no environment is known and " +
		"the command fails before running anything.",
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployImage, "image", "", "image to deploy")
	deployCmd.Flags().StringVar(&deployEnvironment, "environment", types.DefaultFallbackEnvironment, "target environment")
	deployCmd.Flags().StringVar(&deployConfig, "config", "", "pipeline config defining the environments")
	_ = deployCmd.MarkFlagRequired("image")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if deployImage == "" {
		return fmt.Errorf("--image is required")
	}

	ctx := commandContext(cmd)
	rep := newReporter(cmd.OutOrStdout())

	var cfg *types.PipelineConfig
	environments := map[string]types.Environment{}
	if deployConfig != "" {
		var err error
		cfg, _, err = loadCheckedConfig(deployConfig, newReporter(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		environments = cfg.Environments
	}

	tool, err := resolveTool()
	if err != nil {
		return err
	}

	d := &deploy.Deployer{
		Environments: environments,
		Tool:         tool,
		Exec:         newExecutor(rep),
		Updater:      deploy.NewKubectl(resolveApp(cfg)),
	}

	artifact := types.ArtifactID(deployImage)
	rep.Deploying(artifact, deployEnvironment)
	if err := d.Deploy(ctx, artifact, deployEnvironment); err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	rep.Deployed(artifact, deployEnvironment)
	return nil
}
