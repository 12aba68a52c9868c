// Package deploy pushes a built image to an environment's registry and
// points the running deployment at it.
package deploy

import (
	"context"
	"strings"

	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

// Updater renders the command that switches a running deployment to a new
// image.
type Updater interface {
	UpdateCommand(image string, env types.Environment) string
}

// Deployer tags, pushes and rolls out an artifact to a named environment.
type Deployer struct {
	Environments map[string]types.Environment
	Tool         container.Tool
	Exec         shell.Executor
	Updater      Updater
}

// RegistryImage returns the registry-qualified name of artifact.
func RegistryImage(registry string, artifact types.ArtifactID) string {
	return strings.TrimSuffix(registry, "/") + "/" + artifact.String()
}

// Deploy deploys artifact to envName. An unknown environment fails with
// *types.ConfigError before any command runs. The tag, push and update
// steps run in order and the first failure stops the rest; completed steps
// are not rolled back.
func (d *Deployer) Deploy(ctx context.Context, artifact types.ArtifactID, envName string) error {
	env, ok := d.Environments[envName]
	if !ok {
		return &types.ConfigError{Environment: envName}
	}
	if env.Name == "" {
		env.Name = envName
	}
	if env.DeploymentTarget == "" {
		env.DeploymentTarget = env.Name
	}

	image := RegistryImage(env.Registry, artifact)
	ctxlog.FromContext(ctx).Debug("deploying",
		"artifact", artifact,
		"environment", env.Name,
		"image", image,
		"target", env.DeploymentTarget,
	)

	updater := d.Updater
	if updater == nil {
		updater = &Kubectl{}
	}

	steps := []string{
		d.Tool.TagCommand(artifact.String(), image),
		d.Tool.PushCommand(image),
		updater.UpdateCommand(image, env),
	}
	for _, cmd := range steps {
		if _, err := d.Exec.Run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}
