// Package config loads pipeline documents from disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildkite/interpolate"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/initializ/pipeline-runner/types"
	"github.com/initializ/pipeline-runner/validate"
)

// SchemaError reports a document that does not match the pipeline schema.
type SchemaError struct {
	Path       string
	Violations []validate.Violation
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%s: %d schema error(s): %s", e.Path, len(msgs), strings.Join(msgs, "; "))
}

// LoadPipelineConfig reads, schema-checks and parses a pipeline document.
// Files ending in .json or .jsonc are read as JSONC (comments and trailing
// commas allowed); everything else is read as YAML. ${VAR} references in
// the app name and environment registry/deployment target are expanded
// from the process environment.
func LoadPipelineConfig(path string) (*types.PipelineConfig, error) {
	return LoadPipelineConfigWithEnv(path, interpolate.NewSliceEnv(os.Environ()))
}

// LoadPipelineConfigWithEnv is LoadPipelineConfig with an explicit
// interpolation environment.
func LoadPipelineConfigWithEnv(path string, env interpolate.Env) (*types.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config %s: %w", path, err)
	}
	return Parse(path, data, env)
}

// Parse decodes pipeline document bytes. The path is only used to pick the
// format and to label errors.
func Parse(path string, data []byte, env interpolate.Env) (*types.PipelineConfig, error) {
	if isJSONC(path) {
		data = jsonc.ToJSON(data)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: parsing pipeline config: %w", path, err)
	}

	violations, err := validate.ValidateSchema(doc)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &SchemaError{Path: path, Violations: violations}
	}

	cfg, err := types.ParsePipelineConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if env != nil {
		if err := expand(cfg, env); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cfg, nil
}

func isJSONC(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return true
	}
	return false
}

// expand interpolates environment variables into the fields that name
// external locations. Stage commands are left untouched.
func expand(cfg *types.PipelineConfig, env interpolate.Env) error {
	app, err := interpolate.Interpolate(env, cfg.App)
	if err != nil {
		return fmt.Errorf("interpolating app: %w", err)
	}
	cfg.App = app

	for key, e := range cfg.Environments {
		registry, err := interpolate.Interpolate(env, e.Registry)
		if err != nil {
			return fmt.Errorf("interpolating environments.%s.registry: %w", key, err)
		}
		target, err := interpolate.Interpolate(env, e.DeploymentTarget)
		if err != nil {
			return fmt.Errorf("interpolating environments.%s.deployment_target: %w", key, err)
		}
		e.Registry = registry
		e.DeploymentTarget = target
		cfg.Environments[key] = e
	}
	return nil
}
