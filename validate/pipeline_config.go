package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/initializ/pipeline-runner/types"
)

var appPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidationResult holds errors and warnings from config validation.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidatePipelineConfig checks a parsed PipelineConfig for errors and warnings.
func ValidatePipelineConfig(cfg *types.PipelineConfig) *ValidationResult {
	r := &ValidationResult{}

	if cfg.Name == "" {
		r.Errors = append(r.Errors, "name is required")
	}
	if cfg.App != "" && !appPattern.MatchString(cfg.App) {
		r.Errors = append(r.Errors, fmt.Sprintf("app %q must match %s", cfg.App, appPattern))
	}

	checkAxis(r, "versions", cfg.Versions)
	checkAxis(r, "base_images", cfg.BaseImages)

	if len(cfg.Versions) == 0 || len(cfg.BaseImages) == 0 {
		r.Warnings = append(r.Warnings, "build matrix is empty: versions and base_images must both be non-empty for the pipeline to build anything")
	}

	for _, name := range cfg.EnvironmentNames() {
		env := cfg.Environments[name]
		if strings.TrimSpace(env.Registry) == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("environments.%s: registry is required", name))
		}
		if strings.HasSuffix(env.Registry, "/") {
			r.Warnings = append(r.Warnings, fmt.Sprintf("environments.%s: registry %q has a trailing slash", name, env.Registry))
		}
	}

	for _, name := range []string{cfg.Policy.StableEnvironment, cfg.Policy.DefaultEnvironment} {
		if name != "" && !cfg.HasEnvironment(name) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("environment %q is not configured; matrix cells mapped to it will skip deployment", name))
		}
	}

	for i, s := range cfg.Stages {
		if s.Name == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: name is required", i))
		}
		if len(s.Commands) == 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: at least one command is required", i))
		}
		if s.When != "" || s.Parallel {
			r.Warnings = append(r.Warnings, fmt.Sprintf("stages[%d]: when/parallel are recorded but not evaluated by the matrix pipeline", i))
		}
	}

	return r
}

func checkAxis(r *ValidationResult, field string, values []string) {
	seen := make(map[string]bool, len(values))
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("%s[%d]: value is empty", field, i))
			continue
		}
		if seen[v] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s[%d]: duplicate value %q", field, i, v))
		}
		seen[v] = true
	}
}
