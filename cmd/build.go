package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/build"
	"github.com/initializ/pipeline-runner/types"
)

var (
	buildVersion   string
	buildBaseImage string
	buildTag       string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one image for a version and base image",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildVersion, "version", types.DefaultStableVersion, "runtime version")
	buildCmd.Flags().StringVar(&buildBaseImage, "base-image", "python", "base image name")
	buildCmd.Flags().StringVar(&buildTag, "tag", "latest", "image tag suffix")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	rep := newReporter(cmd.OutOrStdout())

	tool, err := resolveTool()
	if err != nil {
		return err
	}

	b := &build.ImageBuilder{
		App:        resolveApp(nil),
		Tool:       tool,
		Exec:       newExecutor(rep),
		ContextDir: workDir,
	}
	artifact, err := b.Build(ctx, buildVersion, types.NewBaseImage(buildBaseImage), buildTag)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	rep.Built(artifact)
	return nil
}
