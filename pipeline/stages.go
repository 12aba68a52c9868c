package pipeline

import (
	"context"

	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/types"
)

// Builder builds the image for one cell.
type Builder interface {
	Build(ctx context.Context, version string, base types.BaseImage, tag string) (types.ArtifactID, error)
}

// Validator checks a built image.
type Validator interface {
	Validate(ctx context.Context, artifact types.ArtifactID) error
}

// Deployer deploys an image to a named environment.
type Deployer interface {
	Deploy(ctx context.Context, artifact types.ArtifactID, environment string) error
}

// BuildStage builds the cell's image and records the artifact.
type BuildStage struct {
	Builder Builder
}

func (s *BuildStage) Name() string { return "build" }

func (s *BuildStage) Execute(ctx context.Context, cc *CellContext) error {
	artifact, err := s.Builder.Build(ctx, cc.Cell.Version, cc.Cell.Base, cc.Tag)
	if err != nil {
		return err
	}
	cc.Artifact = artifact
	return nil
}

// ValidateStage tests and scans the cell's artifact.
type ValidateStage struct {
	Validator Validator
}

func (s *ValidateStage) Name() string { return "validate" }

func (s *ValidateStage) Execute(ctx context.Context, cc *CellContext) error {
	return s.Validator.Validate(ctx, cc.Artifact)
}

// DeployStage deploys the artifact to the environment chosen by Policy.
// When that environment is not configured the cell is skipped, not failed.
type DeployStage struct {
	Deployer     Deployer
	Policy       EnvironmentPolicy
	Environments interface{ HasEnvironment(name string) bool }
}

func (s *DeployStage) Name() string { return "deploy" }

func (s *DeployStage) Execute(ctx context.Context, cc *CellContext) error {
	env := s.Policy.EnvironmentFor(cc.Cell.Version)
	if !s.Environments.HasEnvironment(env) {
		ctxlog.FromContext(ctx).Info("environment not configured, skipping deployment",
			"cell", cc.Cell.String(),
			"environment", env,
		)
		cc.Skip(env)
		return nil
	}

	cc.Environment = env
	return s.Deployer.Deploy(ctx, cc.Artifact, env)
}
