package agent

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sovereignos/agentrun/internal/errors"
	"gopkg.in/yaml.v3"
)

// Load reads and checks the agent definition at path.
//
// Failures are typed: ErrorTypeNotFound when the file is missing or unreadable,
// ErrorTypeParse when it is not well-formed YAML, ErrorTypeSchema when required
// keys are absent or have the wrong shape.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError(err, path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound,
			fmt.Sprintf("cannot read agent configuration file %s", path)).
			WithContext("path", path)
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	slog.Default().With("component", "agent").Debug("agent config loaded",
		"path", path, "name", cfg.Name, "model", cfg.LLMConfig.Model)
	return cfg, nil
}

// Parse decodes an agent definition from YAML bytes. source names the
// document in error messages.
func Parse(data []byte, source string) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		if _, ok := err.(*yaml.TypeError); ok {
			return nil, errors.SchemaErrorf("agent config %s must be a mapping of keys to values", source).
				WithContext("path", source)
		}
		return nil, errors.ParseError(err, source)
	}
	if raw == nil {
		return nil, errors.SchemaErrorf("agent config %s is empty", source).WithContext("path", source)
	}

	if missing := missingKeys(raw, RequiredKeys); len(missing) > 0 {
		return nil, errors.SchemaErrorf("agent config is missing one or more required top-level keys: %s",
			strings.Join(missing, ", ")).
			WithContext("path", source).
			WithContext("missing", missing)
	}

	llm, ok := raw["llm_config"].(map[string]interface{})
	if !ok {
		return nil, errors.SchemaErrorf("agent llm_config must be a mapping").WithContext("path", source)
	}
	if _, ok := llm["model"]; !ok {
		return nil, errors.SchemaErrorf("agent llm_config is missing 'model'").WithContext("path", source)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "agent config has fields of the wrong type").
			WithContext("path", source)
	}
	if strings.TrimSpace(cfg.LLMConfig.Model) == "" {
		return nil, errors.SchemaErrorf("agent llm_config.model must not be empty").WithContext("path", source)
	}
	if mt := cfg.LLMConfig.MaxTokens; mt != nil && *mt <= 0 {
		return nil, errors.SchemaErrorf("agent llm_config.max_tokens must be a positive integer, got %d", *mt).
			WithContext("path", source)
	}

	return &cfg, nil
}

func missingKeys(raw map[string]interface{}, required []string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
