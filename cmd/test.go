package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/types"
	"github.com/initializ/pipeline-runner/verify"
)

var (
	testImage        string
	testCommandLine  string
	testScannerImage string
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the test suite and vulnerability scan against an image",
	RunE:  runTest,
}

func init() {
	testCmd.Flags().StringVar(&testImage, "image", "", "image to validate")
	testCmd.Flags().StringVar(&testCommandLine, "test-command", types.DefaultTestCommand, "test command run inside the image")
	testCmd.Flags().StringVar(&testScannerImage, "scanner-image", types.DefaultScannerImage, "vulnerability scanner image")
	_ = testCmd.MarkFlagRequired("image")
}

func runTest(cmd *cobra.Command, args []string) error {
	if testImage == "" {
		return fmt.Errorf("--image is required")
	}

	ctx := commandContext(cmd)
	rep := newReporter(cmd.OutOrStdout())

	tool, err := resolveTool()
	if err != nil {
		return err
	}

	v, err := verify.NewValidator(tool, newExecutor(rep), types.ValidationRef{
		TestCommand:  testCommandLine,
		ScannerImage: testScannerImage,
	})
	if err != nil {
		return err
	}

	artifact := types.ArtifactID(testImage)
	if err := v.Validate(ctx, artifact); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rep.Validated(artifact)
	return nil
}
