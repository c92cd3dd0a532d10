package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the execution context
type DeploymentMode string

const (
	// ModeInteractive is a developer shell: keychain lookups and prompts are fine
	ModeInteractive DeploymentMode = "interactive"

	// ModeCI is a pipeline: credentials come from the environment only
	ModeCI DeploymentMode = "ci"
)

// DetectMode determines the execution context based on environment
func DetectMode() DeploymentMode {
	if mode := os.Getenv("AGENTRUN_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "ci", "cicd":
			return ModeCI
		case "interactive", "dev", "local":
			return ModeInteractive
		}
	}

	if isCI() {
		return ModeCI
	}
	return ModeInteractive
}

// isCI detects if running in a CI/CD environment
func isCI() bool {
	ciEnvVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"TRAVIS",
		"JENKINS_URL",
		"BUILDKITE",
		"DRONE",
		"TF_BUILD",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// AllowsKeychain returns true if the OS keychain may be consulted.
// CI runners usually have no secret service and a lookup can block.
func (m DeploymentMode) AllowsKeychain() bool {
	return m == ModeInteractive
}

// String returns the string representation of the mode
func (m DeploymentMode) String() string {
	return string(m)
}
