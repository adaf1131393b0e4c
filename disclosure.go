package respenvelope

import (
	"errors"
	"fmt"
	"strings"
)

// Environment names the runtime environment the process runs in.
type Environment string

const (
	EnvLocal       Environment = "local"
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ErrUnknownEnvironment is returned by ParseEnvironment for names outside
// the known set.
var ErrUnknownEnvironment = errors.New("respenvelope: unknown environment")

// ParseEnvironment normalizes s and maps it onto a known Environment.
// "dev" and "prod" are accepted as short forms.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return EnvLocal, nil
	case "development", "dev":
		return EnvDevelopment, nil
	case "testing", "test":
		return EnvTesting, nil
	case "staging":
		return EnvStaging, nil
	case "production", "prod":
		return EnvProduction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// ShouldDisclose reports whether internal failure detail (message, source
// location, stack) may reach the client. Only production redacts.
func ShouldDisclose(env Environment) bool {
	return env != EnvProduction
}
