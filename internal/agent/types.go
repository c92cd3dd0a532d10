package agent

import (
	"encoding/json"

	"github.com/sovereignos/agentrun/internal/errors"
)

const (
	// DefaultTemperature is sent when llm_config.temperature is omitted
	DefaultTemperature = 0.7

	// DefaultMaxTokens is sent when llm_config.max_tokens is omitted
	DefaultMaxTokens = 512
)

// RequiredKeys are the top-level keys every agent definition must carry
var RequiredKeys = []string{"name", "llm_config", "prompt_template", "input_schema"}

// Config is a declarative agent definition loaded from YAML.
// It is not modified after Load returns.
type Config struct {
	Name           string      `yaml:"name" json:"name"`
	Description    string      `yaml:"description,omitempty" json:"description,omitempty"`
	LLMConfig      LLMConfig   `yaml:"llm_config" json:"llm_config"`
	PromptTemplate string      `yaml:"prompt_template" json:"prompt_template"`
	InputSchema    interface{} `yaml:"input_schema" json:"input_schema"`
}

// LLMConfig selects the model and sampling parameters for the agent.
// Optional fields are pointers so an explicit zero is distinguishable from omission.
type LLMConfig struct {
	Model       string   `yaml:"model" json:"model"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// EffectiveTemperature returns the configured temperature or DefaultTemperature
func (c LLMConfig) EffectiveTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// EffectiveMaxTokens returns the configured max_tokens or DefaultMaxTokens
func (c LLMConfig) EffectiveMaxTokens() int {
	if c.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *c.MaxTokens
}

// SchemaJSON encodes input_schema as JSON. A null schema becomes {}.
func (c *Config) SchemaJSON() ([]byte, error) {
	if c.InputSchema == nil {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(c.InputSchema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "input_schema cannot be represented as JSON")
	}
	return data, nil
}
