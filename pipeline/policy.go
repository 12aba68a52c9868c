package pipeline

import "github.com/initializ/pipeline-runner/types"

// EnvironmentPolicy picks the one environment a version deploys to.
type EnvironmentPolicy interface {
	EnvironmentFor(version string) string
}

// PolicyFunc adapts a function to EnvironmentPolicy.
type PolicyFunc func(version string) string

func (f PolicyFunc) EnvironmentFor(version string) string { return f(version) }

// StablePolicy sends the stable version to the stable environment and every
// other version to the default environment.
type StablePolicy struct {
	StableVersion      string
	StableEnvironment  string
	DefaultEnvironment string
}

// NewStablePolicy builds a StablePolicy from a config's policy section,
// filling empty fields with the defaults (3.11 to production, else staging).
func NewStablePolicy(ref types.PolicyRef) *StablePolicy {
	p := &StablePolicy{
		StableVersion:      ref.StableVersion,
		StableEnvironment:  ref.StableEnvironment,
		DefaultEnvironment: ref.DefaultEnvironment,
	}
	if p.StableVersion == "" {
		p.StableVersion = types.DefaultStableVersion
	}
	if p.StableEnvironment == "" {
		p.StableEnvironment = types.DefaultStableEnvironment
	}
	if p.DefaultEnvironment == "" {
		p.DefaultEnvironment = types.DefaultFallbackEnvironment
	}
	return p
}

func (p *StablePolicy) EnvironmentFor(version string) string {
	if version == p.StableVersion {
		return p.StableEnvironment
	}
	return p.DefaultEnvironment
}
