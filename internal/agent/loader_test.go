package agent

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleGreeter = `name: SimpleGreeter
description: A basic agent that greets a user by name.
llm_config:
  model: mistralai/mistral-7b-instruct
  temperature: 0.5
prompt_template: |
  User's Name: {{name}}
  Favorite Color: {{color}}
input_schema:
  type: object
  properties:
    name:
      type: string
    color:
      type: string
  required: [name, color]
`

func writeAgent(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeAgent(t, simpleGreeter))
	require.NoError(t, err)

	assert.Equal(t, "SimpleGreeter", cfg.Name)
	assert.Equal(t, "A basic agent that greets a user by name.", cfg.Description)
	assert.Equal(t, "mistralai/mistral-7b-instruct", cfg.LLMConfig.Model)
	require.NotNil(t, cfg.LLMConfig.Temperature)
	assert.Equal(t, 0.5, *cfg.LLMConfig.Temperature)
	assert.Nil(t, cfg.LLMConfig.MaxTokens, "max_tokens is not defaulted at load time")
	assert.Contains(t, cfg.PromptTemplate, "{{name}}")

	schema, err := cfg.SchemaJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}, "color": {"type": "string"}},
		"required": ["name", "color"]
	}`, string(schema))
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(writeAgent(t, "name: [unclosed\nllm_config: {"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrParse))
}

func TestLoad_MissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
	}{
		{
			name:    "missing name",
			content: "llm_config: {model: m}\nprompt_template: hi\ninput_schema: {}\n",
			missing: "name",
		},
		{
			name:    "missing llm_config",
			content: "name: a\nprompt_template: hi\ninput_schema: {}\n",
			missing: "llm_config",
		},
		{
			name:    "missing prompt_template",
			content: "name: a\nllm_config: {model: m}\ninput_schema: {}\n",
			missing: "prompt_template",
		},
		{
			name:    "missing input_schema",
			content: "name: a\nllm_config: {model: m}\nprompt_template: hi\n",
			missing: "input_schema",
		},
		{
			name:    "missing several",
			content: "name: a\n",
			missing: "input_schema, llm_config, prompt_template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeAgent(t, tt.content))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrSchema))
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestLoad_ModelRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no model key", "name: a\nllm_config: {temperature: 0.2}\nprompt_template: hi\ninput_schema: {}\n"},
		{"empty model", "name: a\nllm_config: {model: \"\"}\nprompt_template: hi\ninput_schema: {}\n"},
		{"llm_config not a mapping", "name: a\nllm_config: gpt\nprompt_template: hi\ninput_schema: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeAgent(t, tt.content))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrSchema))
		})
	}
}

func TestLoad_NotAMapping(t *testing.T) {
	for name, content := range map[string]string{
		"empty file": "",
		"list":       "- name\n- llm_config\n",
		"scalar":     "just a string\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeAgent(t, content))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrSchema))
		})
	}
}

func TestLoad_WrongFieldType(t *testing.T) {
	_, err := Load(writeAgent(t, "name: a\nllm_config: {model: m, max_tokens: lots}\nprompt_template: hi\ninput_schema: {}\n"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSchema))
}

func TestLoad_MaxTokensMustBePositive(t *testing.T) {
	for _, tokens := range []string{"0", "-5"} {
		t.Run(tokens, func(t *testing.T) {
			_, err := Load(writeAgent(t, "name: a\nllm_config: {model: m, max_tokens: "+tokens+"}\nprompt_template: hi\ninput_schema: {}\n"))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrSchema))
			assert.Contains(t, err.Error(), "max_tokens")
		})
	}

	cfg, err := Load(writeAgent(t, "name: a\nllm_config: {model: m, max_tokens: 1}\nprompt_template: hi\ninput_schema: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.LLMConfig.EffectiveMaxTokens())
}

func TestLLMConfig_Defaults(t *testing.T) {
	var cfg LLMConfig
	assert.Equal(t, DefaultTemperature, cfg.EffectiveTemperature())
	assert.Equal(t, DefaultMaxTokens, cfg.EffectiveMaxTokens())

	zero := 0.0
	tokens := 64
	cfg = LLMConfig{Temperature: &zero, MaxTokens: &tokens}
	assert.Equal(t, 0.0, cfg.EffectiveTemperature())
	assert.Equal(t, 64, cfg.EffectiveMaxTokens())
}

func TestSchemaJSON_NullSchema(t *testing.T) {
	cfg, err := Parse([]byte("name: a\nllm_config: {model: m}\nprompt_template: hi\ninput_schema:\n"), "inline")
	require.NoError(t, err)

	schema, err := cfg.SchemaJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(schema))
}

func TestLoad_BundledExamples(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("..", "..", "examples", "agents", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Name)
			assert.NotEmpty(t, cfg.LLMConfig.Model)

			_, err = cfg.SchemaJSON()
			assert.NoError(t, err)
		})
	}
}
