package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

// ImageBuilder renders a Dockerfile for a matrix cell and builds it with a
// container tool.
type ImageBuilder struct {
	App  string
	Tool container.Tool
	Exec shell.Executor

	// ContextDir is the build context and the directory the Dockerfile is
	// written to. Empty means the working directory.
	ContextDir string

	// DockerfileName overrides DefaultDockerfile.
	DockerfileName string

	// PerCellDockerfile gives every cell its own Dockerfile so concurrent
	// builds never share one.
	PerCellDockerfile bool
}

// Build builds the image for (version, base) and returns its identifier.
// The rendered Dockerfile is left in place; the next build of the same
// cell overwrites it. Errors from the executor are returned unchanged.
func (b *ImageBuilder) Build(ctx context.Context, version string, base types.BaseImage, tag string) (types.ArtifactID, error) {
	app := b.App
	if app == "" {
		app = types.DefaultApp
	}
	artifact := types.NewArtifactID(app, version, base.Name, tag)

	content, err := RenderDockerfile(version, base)
	if err != nil {
		return "", err
	}

	name := b.dockerfileName(version, base.Name)
	if err := os.WriteFile(filepath.Join(b.ContextDir, name), content, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	ctxlog.FromContext(ctx).Debug("rendered dockerfile",
		"artifact", artifact,
		"dockerfile", name,
		"family", base.Family.String(),
	)

	// Commands run inside ContextDir, so paths stay relative to it.
	cmd := b.Tool.BuildCommand(container.BuildOptions{
		Dockerfile: name,
		Tag:        artifact.String(),
		ContextDir: ".",
	})
	if _, err := b.Exec.Run(ctx, cmd); err != nil {
		return "", err
	}
	return artifact, nil
}

func (b *ImageBuilder) dockerfileName(version, base string) string {
	if b.PerCellDockerfile {
		return CellDockerfile(version, base)
	}
	if b.DockerfileName != "" {
		return b.DockerfileName
	}
	return DefaultDockerfile
}
