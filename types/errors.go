package types

import "fmt"

// ConfigError reports a reference to an environment that is not configured.
type ConfigError struct {
	Environment string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("environment %q not found in config", e.Environment)
}
