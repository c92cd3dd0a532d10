package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/sovereignos/agentrun/internal/logging"
	"github.com/sovereignos/agentrun/internal/output"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks runner settings. Agent definitions are checked by the agent package.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateAPI(result)
	c.validateLog(result)
	c.validateOutput(result)

	return result
}

// Err returns nil when valid, otherwise a config-schema error carrying the report
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.SchemaErrorf("%s", strings.TrimRight(vr.Error(), "\n")).
		WithContext("errors", len(vr.Errors))
}

func (c *Config) validateAPI(result *ValidationResult) {
	if c.API.BaseURL == "" {
		result.AddError("api.base_url must not be empty")
	} else {
		u, err := url.Parse(c.API.BaseURL)
		switch {
		case err != nil:
			result.AddError("api.base_url is invalid: %v", err)
		case u.Scheme != "http" && u.Scheme != "https":
			result.AddError("api.base_url must use http or https, got %q", u.Scheme)
		case u.Host == "":
			result.AddError("api.base_url has no host")
		case u.Scheme == "http" && !isLocalHost(u.Hostname()):
			result.AddWarning("api.base_url uses plain http; the API key will be sent unencrypted")
		}
	}

	if c.API.Key != "" {
		result.AddWarning("api.key is stored in plaintext. Prefer %s or 'agentrun configure'", APIKeyEnv)
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		result.AddError("log.level: %v", err)
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		result.AddError("output.format: %v", err)
	}
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
