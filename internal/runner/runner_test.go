package runner

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sovereignos/agentrun/internal/agent"
	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/sovereignos/agentrun/internal/llm"
	"github.com/sovereignos/agentrun/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeterYAML = `name: SimpleGreeter
description: Greets a person by name
llm_config:
  model: openai/gpt-3.5-turbo
  temperature: 0.5
prompt_template: "Say hello to {{name}} who is {{age}} years old. {{mood}}"
input_schema:
  type: object
  properties:
    name:
      type: string
    age:
      type: number
  required:
    - name
`

type fakeCompleter struct {
	calls    int
	prompt   string
	cfg      agent.LLMConfig
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, cfg agent.LLMConfig) (string, error) {
	f.calls++
	f.prompt = prompt
	f.cfg = cfg
	return f.response, f.err
}

func writeAgent(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRun_Success(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	fc := &fakeCompleter{response: "Hello, Ada!"}

	var progress, out bytes.Buffer
	r := New(Options{Completer: fc, Progress: &progress, Out: &out})

	result, err := r.Run(context.Background(), path, `{"name":"Ada","age":36}`)
	require.NoError(t, err)

	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, "Say hello to Ada who is 36 years old. {{mood}}", fc.prompt)
	assert.Equal(t, "openai/gpt-3.5-turbo", fc.cfg.Model)

	assert.Equal(t, "SimpleGreeter", result.Agent)
	assert.Equal(t, "Hello, Ada!", result.Response)
	assert.NotEmpty(t, result.RunID)

	p := progress.String()
	assert.True(t, strings.HasPrefix(p, Banner+"\n"))
	for _, line := range []string{
		"[1] Loading agent configuration from: " + path,
		"Agent 'SimpleGreeter' loaded successfully.",
		"[2] Processing input data...",
		"Input data validated successfully.",
		"[3] Preparing prompt...",
		"[4] Executing agent with LLM...",
		"--- Sending to LLM (openai/gpt-3.5-turbo) ---",
		"[5] Agent Execution Result:",
		"Agent run finished.",
	} {
		assert.Contains(t, p, line)
	}

	assert.Equal(t, output.Separator+"\nHello, Ada!\n"+output.Separator+"\n", out.String())
}

func TestRun_ValidationFailureSkipsCompleter(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	fc := &fakeCompleter{response: "unused"}

	var progress, out bytes.Buffer
	r := New(Options{Completer: fc, Progress: &progress, Out: &out})

	_, err := r.Run(context.Background(), path, `{"age":36}`)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInputSchema))
	assert.Equal(t, 0, fc.calls)
	assert.Empty(t, out.String())
	assert.Contains(t, progress.String(), "Error: Input data validation failed.")
	assert.Contains(t, progress.String(), "Reason:")
	assert.Contains(t, progress.String(), "Schema Path: required")
	assert.NotContains(t, progress.String(), "[3] Preparing prompt...")
}

func TestRun_ValidationFailureNamesNestedField(t *testing.T) {
	path := writeAgent(t, `name: Tagger
llm_config:
  model: m
prompt_template: "{{user}}"
input_schema:
  type: object
  properties:
    user:
      type: object
      properties:
        tags:
          type: array
          items:
            type: string
`)
	var progress bytes.Buffer
	r := New(Options{Completer: &fakeCompleter{}, Progress: &progress, Out: &bytes.Buffer{}})

	_, err := r.Run(context.Background(), path, `{"user":{"tags":["a",5]}}`)
	require.Error(t, err)
	assert.Contains(t, progress.String(), "Path: user -> tags -> 1\n")
	assert.Contains(t, progress.String(), "Schema Path: properties -> user -> properties -> tags -> items -> type\n")
}

func TestRun_EarlyFailures(t *testing.T) {
	tests := []struct {
		name      string
		path      func(t *testing.T) string
		input     string
		sentinel  error
		wantInLog string
	}{
		{
			name:      "missing file",
			path:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			input:     "{}",
			sentinel:  errors.ErrNotFound,
			wantInLog: "agent configuration file not found",
		},
		{
			name:      "bad yaml",
			path:      func(t *testing.T) string { return writeAgent(t, "name: [unclosed") },
			input:     "{}",
			sentinel:  errors.ErrParse,
			wantInLog: "error parsing YAML file",
		},
		{
			name:      "missing keys",
			path:      func(t *testing.T) string { return writeAgent(t, "name: x\n") },
			input:     "{}",
			sentinel:  errors.ErrSchema,
			wantInLog: "input_schema, llm_config, prompt_template",
		},
		{
			name:      "bad input json",
			path:      func(t *testing.T) string { return writeAgent(t, greeterYAML) },
			input:     `{"name":`,
			sentinel:  errors.ErrInputParse,
			wantInLog: "Error: invalid input JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{response: "unused"}
			var progress bytes.Buffer
			r := New(Options{Completer: fc, Progress: &progress})

			_, err := r.Run(context.Background(), tt.path(t), tt.input)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, 0, fc.calls)
			assert.Contains(t, progress.String(), tt.wantInLog)
		})
	}
}

func TestRun_CompleterFailurePrintsNotice(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	fc := &fakeCompleter{err: errors.MissingCredentialError("OPENROUTER_API_KEY")}

	var progress, out bytes.Buffer
	r := New(Options{Completer: fc, Progress: &progress, Out: &out})

	result, err := r.Run(context.Background(), path, `{"name":"Ada"}`)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, stderrors.Is(err, errors.ErrMissingCredential))
	assert.Empty(t, out.String())

	p := progress.String()
	assert.Contains(t, p, "Error: API key not set")
	assert.Contains(t, p, FailureNotice)
	assert.Contains(t, p, "Agent run finished.")
}

func TestRun_SeparateErrorWriter(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	fc := &fakeCompleter{err: errors.MalformedResponseErrorf("LLM response content is empty or malformed")}

	var errs, out bytes.Buffer
	r := New(Options{Completer: fc, Out: &out, Errors: &errs, Formatter: &output.QuietFormatter{}})

	_, err := r.Run(context.Background(), path, `{"name":"Ada"}`)
	require.Error(t, err)
	assert.Contains(t, errs.String(), "Error: LLM response content is empty or malformed")
	assert.Contains(t, errs.String(), FailureNotice)
	assert.Empty(t, out.String())
}

func TestRun_JSONOutput(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	fc := &fakeCompleter{response: "Hi"}

	var out bytes.Buffer
	r := New(Options{Completer: fc, Out: &out, Formatter: output.NewFormatter(output.FormatJSON)})

	_, err := r.Run(context.Background(), path, `{"name":"Ada"}`)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "Hi", decoded["response"])
	assert.Equal(t, "SimpleGreeter", decoded["agent"])
	assert.Equal(t, "Say hello to Ada who is {{age}} years old. {{mood}}", decoded["prompt"])
}

func TestPrepare(t *testing.T) {
	path := writeAgent(t, greeterYAML)
	r := New(Options{})

	prepared, err := r.Prepare(path, `{"name":"Ada","extra":true}`)
	require.NoError(t, err)
	assert.Equal(t, "Say hello to Ada who is {{age}} years old. {{mood}}", prepared.Prompt)
	assert.Equal(t, []string{"age", "mood"}, prepared.Unmatched)
	assert.Equal(t, "SimpleGreeter", prepared.Agent.Name)
}

func TestPrepare_FillsInInputOrder(t *testing.T) {
	path := writeAgent(t, `name: Chain
llm_config:
  model: m
prompt_template: "{{b}}"
input_schema: {}
`)
	r := New(Options{})

	prepared, err := r.Prepare(path, `{"b":"{{a}}","a":"A"}`)
	require.NoError(t, err)
	assert.Equal(t, "A", prepared.Prompt)

	prepared, err = r.Prepare(path, `{"a":"A","b":"{{a}}"}`)
	require.NoError(t, err)
	assert.Equal(t, "{{a}}", prepared.Prompt)
}

func TestPrepare_NonObjectInputLeavesTemplate(t *testing.T) {
	path := writeAgent(t, `name: Echo
llm_config:
  model: m
prompt_template: "Echo {{text}}"
input_schema: {}
`)
	r := New(Options{})

	prepared, err := r.Prepare(path, `["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, "Echo {{text}}", prepared.Prompt)
	assert.Equal(t, []string{"text"}, prepared.Unmatched)
}

func TestRun_AgainstProvider(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/chat/completions", req.URL.Path)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gen-1","model":"openai/gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"  Hello, Ada!\n"}}]}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.ClientConfig{APIKey: "sk-test", BaseURL: srv.URL})

	path := writeAgent(t, greeterYAML)
	var out bytes.Buffer
	r := New(Options{Completer: client, Out: &out, Formatter: &output.QuietFormatter{}})

	result, err := r.Run(context.Background(), path, `{"name":"Ada","age":36}`)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", result.Response)
	assert.Equal(t, "Hello, Ada!\n", out.String())

	assert.Equal(t, "openai/gpt-3.5-turbo", gotBody["model"])
	assert.InDelta(t, 0.5, gotBody["temperature"], 1e-6)
	assert.Equal(t, float64(512), gotBody["max_tokens"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "Say hello to Ada who is 36 years old. {{mood}}", messages[0].(map[string]any)["content"])
}

func TestRun_ProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"No auth credentials found","code":401}}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.ClientConfig{APIKey: "sk-bad", BaseURL: srv.URL})

	var progress bytes.Buffer
	r := New(Options{Completer: client, Progress: &progress})

	_, err := r.Run(context.Background(), writeAgent(t, greeterYAML), `{"name":"Ada"}`)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrHTTP))

	p := progress.String()
	assert.Contains(t, p, "status 401: No auth credentials found")
	assert.Contains(t, p, "Error details:")
	assert.Contains(t, p, FailureNotice)
}

func TestDiagnostic_PlainError(t *testing.T) {
	assert.Equal(t, "Error: boom\n", Diagnostic(stderrors.New("boom")))
}
