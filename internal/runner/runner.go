// Package runner sequences one agent invocation: load the definition,
// validate input, fill the prompt, call the model and print the result.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sovereignos/agentrun/internal/agent"
	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/sovereignos/agentrun/internal/llm"
	"github.com/sovereignos/agentrun/internal/output"
	"github.com/sovereignos/agentrun/internal/prompt"
	"github.com/sovereignos/agentrun/internal/validation"
)

const (
	// Banner opens every run
	Banner = "SovereignOS Agent Runner v0.1 (Local)"

	// FailureNotice replaces the result when the model produced nothing
	FailureNotice = "Agent execution failed or produced no output."

	promptPreviewLength = 200
)

// Completer sends a filled prompt to a model. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string, cfg agent.LLMConfig) (string, error)
}

// Options configures a Runner. Nil writers discard.
type Options struct {
	Completer Completer
	Progress  io.Writer        // step-by-step narration
	Out       io.Writer        // formatted result
	Errors    io.Writer        // diagnostics; defaults to Progress
	Formatter output.Formatter // defaults to text
}

// Runner executes agents
type Runner struct {
	completer Completer
	progress  io.Writer
	out       io.Writer
	errs      io.Writer
	formatter output.Formatter
	logger    *slog.Logger
}

// Prepared is an agent invocation ready to be sent to the model
type Prepared struct {
	Agent     *agent.Config
	Input     any
	Prompt    string
	Unmatched []string // placeholders left verbatim in Prompt
}

// New creates a Runner
func New(opts Options) *Runner {
	r := &Runner{
		completer: opts.Completer,
		progress:  opts.Progress,
		out:       opts.Out,
		errs:      opts.Errors,
		formatter: opts.Formatter,
	}
	if r.progress == nil {
		r.progress = io.Discard
	}
	if r.out == nil {
		r.out = io.Discard
	}
	if r.errs == nil {
		r.errs = r.progress
	}
	if r.formatter == nil {
		r.formatter = output.NewFormatter(output.FormatText)
	}
	r.logger = slog.Default().With("component", "runner")
	return r
}

// Prepare performs steps 1 to 3: load the agent definition, parse and
// validate the input JSON, and fill the prompt template. It never contacts
// the model.
func (r *Runner) Prepare(path, inputJSON string) (*Prepared, error) {
	r.printf("\n[1] Loading agent configuration from: %s\n", path)
	cfg, err := agent.Load(path)
	if err != nil {
		return nil, r.fail(err)
	}
	r.printf("Agent '%s' loaded successfully.\n", cfg.Name)

	r.printf("\n[2] Processing input data...\n")
	var input any
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return nil, r.fail(errors.InputParseError(err))
	}
	r.printf("Input data: %s\n", prompt.String(input))

	schema, err := cfg.SchemaJSON()
	if err != nil {
		return nil, r.fail(err)
	}
	if err := validation.ValidateInput(input, schema); err != nil {
		return nil, r.fail(err)
	}
	r.printf("Input data validated successfully.\n")

	r.printf("\n[3] Preparing prompt...\n")
	// only an object supplies placeholder values
	data, _ := input.(map[string]any)
	filled := prompt.Fill(cfg.PromptTemplate, prompt.KeyOrder(inputJSON), data)
	unmatched := prompt.Unmatched(cfg.PromptTemplate, data)
	if len(unmatched) > 0 {
		r.logger.Debug("placeholders left unfilled", "names", unmatched)
	}

	return &Prepared{
		Agent:     cfg,
		Input:     input,
		Prompt:    filled,
		Unmatched: unmatched,
	}, nil
}

// Run executes the agent at path with inputJSON and prints the result.
// Any failure is reported on the diagnostics writer and returned; no partial
// result is printed.
func (r *Runner) Run(ctx context.Context, path, inputJSON string) (*output.Result, error) {
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	logger.Debug("agent run started", "path", path)

	r.printf("%s\n%s\n", Banner, strings.Repeat("=", len(output.Separator)))

	prepared, err := r.Prepare(path, inputJSON)
	if err != nil {
		return nil, err
	}

	if r.completer == nil {
		return nil, r.fail(errors.InternalErrorf("runner has no completer"))
	}

	model := prepared.Agent.LLMConfig.Model
	r.printf("\n[4] Executing agent with LLM...\n")
	r.printf("\n--- Sending to LLM (%s) ---\n", model)
	r.printf("Prompt: %s\n", llm.Snippet(prepared.Prompt, promptPreviewLength))

	start := time.Now()
	response, err := r.completer.Complete(ctx, prepared.Prompt, prepared.Agent.LLMConfig)
	elapsed := time.Since(start)

	r.printf("\n[5] Agent Execution Result:\n")
	if err != nil {
		r.report(err)
		fmt.Fprintln(r.errs, FailureNotice)
		r.printf("\nAgent run finished.\n")
		logger.Debug("agent run failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return nil, err
	}

	result := &output.Result{
		RunID:    runID,
		Agent:    prepared.Agent.Name,
		Model:    model,
		Prompt:   prepared.Prompt,
		Response: response,
		Duration: elapsed,
	}
	if err := r.formatter.Format(result, r.out); err != nil {
		return nil, r.fail(errors.Wrap(err, errors.ErrorTypeInternal, "failed to write result"))
	}
	r.printf("\nAgent run finished.\n")

	logger.Debug("agent run finished", "agent", result.Agent, "duration_ms", elapsed.Milliseconds())
	return result, nil
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.progress, format, args...)
}

// fail reports err and returns it unchanged
func (r *Runner) fail(err error) error {
	r.report(err)
	return err
}

// report writes the operator-facing diagnostic for err
func (r *Runner) report(err error) {
	fmt.Fprint(r.errs, Diagnostic(err))
}

// Diagnostic renders err as console lines, adding the provider detail for
// HTTP failures and the offending body for malformed responses.
func Diagnostic(err error) string {
	e, ok := errors.As(err)
	if !ok {
		return fmt.Sprintf("Error: %v\n", err)
	}

	switch e.Type {
	case errors.ErrorTypeInputSchema:
		return validation.Diagnostic(err)
	case errors.ErrorTypeHTTP:
		s := fmt.Sprintf("Error: %s\n", e.Error())
		if detail := e.ContextString("detail"); detail != "" {
			s += fmt.Sprintf("Error details: %s\n", detail)
		}
		return s
	case errors.ErrorTypeMalformedResponse:
		s := fmt.Sprintf("Error: %s\n", e.Error())
		if body := e.ContextString("response"); body != "" {
			s += fmt.Sprintf("Full response: %s\n", body)
		}
		return s
	default:
		return fmt.Sprintf("Error: %s\n", e.Error())
	}
}
