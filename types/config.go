// Package types holds the pipeline configuration model.
package types

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ParsePipelineConfig when the document leaves a field empty.
const (
	DefaultApp                 = "flask-app"
	DefaultStableVersion       = "3.11"
	DefaultStableEnvironment   = "production"
	DefaultFallbackEnvironment = "staging"
	DefaultTestCommand         = "python -m pytest tests/ -v"
	DefaultScannerImage        = "aquasec/trivy:latest"
)

// PipelineConfig is the declarative description of one pipeline run. It is
// built once per process and never mutated after parsing.
type PipelineConfig struct {
	Name         string                 `yaml:"name"`
	App          string                 `yaml:"app,omitempty"`
	Versions     []string               `yaml:"versions,omitempty"`
	BaseImages   []string               `yaml:"base_images,omitempty"`
	Environments map[string]Environment `yaml:"environments,omitempty"`
	Stages       []Stage                `yaml:"stages,omitempty"`
	Policy       PolicyRef              `yaml:"policy,omitempty"`
	Validation   ValidationRef          `yaml:"validation,omitempty"`

	// PythonVersions is an older spelling of Versions, folded into it
	// during parsing.
	PythonVersions []string `yaml:"python_versions,omitempty"`

	bases []BaseImage
}

// Environment is a named deployment target.
type Environment struct {
	Name             string `yaml:"name,omitempty"`
	Registry         string `yaml:"registry"`
	DeploymentTarget string `yaml:"deployment_target,omitempty"`
}

// Stage is a named group of shell commands. Stages are declared in the
// document but not executed by the matrix pipeline.
type Stage struct {
	Name     string   `yaml:"name"`
	Commands []string `yaml:"commands"`
	Parallel bool     `yaml:"parallel,omitempty"`
	When     string   `yaml:"when,omitempty"`
}

// PolicyRef configures the version to environment mapping.
type PolicyRef struct {
	StableVersion      string `yaml:"stable_version,omitempty"`
	StableEnvironment  string `yaml:"stable_environment,omitempty"`
	DefaultEnvironment string `yaml:"default_environment,omitempty"`
}

// ValidationRef configures the image validation step.
type ValidationRef struct {
	TestCommand  string `yaml:"test_command,omitempty"`
	ScannerImage string `yaml:"scanner_image,omitempty"`
}

// ParsePipelineConfig parses raw YAML (or JSON) bytes into a PipelineConfig,
// applies defaults and resolves base image families.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline config: name is required")
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills empty optional fields and resolves base image families.
// ParsePipelineConfig calls it; configs assembled in code should call it
// before use.
func (c *PipelineConfig) ApplyDefaults() {
	if len(c.Versions) == 0 && len(c.PythonVersions) > 0 {
		c.Versions = c.PythonVersions
	}
	c.PythonVersions = nil

	if c.App == "" {
		c.App = DefaultApp
	}

	for key, env := range c.Environments {
		if env.Name == "" {
			env.Name = key
		}
		if env.DeploymentTarget == "" {
			env.DeploymentTarget = env.Name
		}
		c.Environments[key] = env
	}

	if c.Policy.StableVersion == "" {
		c.Policy.StableVersion = DefaultStableVersion
	}
	if c.Policy.StableEnvironment == "" {
		c.Policy.StableEnvironment = DefaultStableEnvironment
	}
	if c.Policy.DefaultEnvironment == "" {
		c.Policy.DefaultEnvironment = DefaultFallbackEnvironment
	}

	if c.Validation.TestCommand == "" {
		c.Validation.TestCommand = DefaultTestCommand
	}
	if c.Validation.ScannerImage == "" {
		c.Validation.ScannerImage = DefaultScannerImage
	}

	c.bases = make([]BaseImage, 0, len(c.BaseImages))
	for _, name := range c.BaseImages {
		c.bases = append(c.bases, NewBaseImage(name))
	}
}

// Bases returns the configured base images with their families resolved.
func (c *PipelineConfig) Bases() []BaseImage {
	if len(c.bases) != len(c.BaseImages) {
		bases := make([]BaseImage, 0, len(c.BaseImages))
		for _, name := range c.BaseImages {
			bases = append(bases, NewBaseImage(name))
		}
		return bases
	}
	return c.bases
}

// Cells returns the full build matrix: versions in the outer loop, base
// images in the inner loop, both in declared order.
func (c *PipelineConfig) Cells() []Cell {
	bases := c.Bases()
	cells := make([]Cell, 0, len(c.Versions)*len(bases))
	for _, v := range c.Versions {
		for _, b := range bases {
			cells = append(cells, Cell{Index: len(cells), Version: v, Base: b})
		}
	}
	return cells
}

// Environment looks up a configured environment by name.
func (c *PipelineConfig) Environment(name string) (Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return Environment{}, &ConfigError{Environment: name}
	}
	return env, nil
}

// HasEnvironment reports whether name is a configured environment.
func (c *PipelineConfig) HasEnvironment(name string) bool {
	_, ok := c.Environments[name]
	return ok
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *PipelineConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cell is one (version, base image) combination of the build matrix.
type Cell struct {
	Index   int
	Version string
	Base    BaseImage
}

func (c Cell) String() string {
	return c.Version + "/" + c.Base.Name
}

// BaseFamily is the closed set of base image families that change how
// system dependencies are installed.
type BaseFamily int

const (
	FamilyDebian BaseFamily = iota
	FamilyAlpine
)

func (f BaseFamily) String() string {
	switch f {
	case FamilyAlpine:
		return "alpine"
	default:
		return "debian"
	}
}

// BaseImage is a base image name with its family resolved.
type BaseImage struct {
	Name   string
	Family BaseFamily
}

// NewBaseImage resolves the family of a base image name. Any name containing
// "alpine" is Alpine-family; everything else is treated as Debian/Ubuntu.
func NewBaseImage(name string) BaseImage {
	family := FamilyDebian
	if strings.Contains(name, "alpine") {
		family = FamilyAlpine
	}
	return BaseImage{Name: name, Family: family}
}
