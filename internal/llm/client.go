package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sovereignos/agentrun/internal/agent"
	"github.com/sovereignos/agentrun/internal/config"
	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// maxBodyInError caps how much of a raw response body is copied into errors
const maxBodyInError = 2000

// Client sends a single chat-completion request per call to an
// OpenAI-compatible endpoint (OpenRouter by default).
// There is no retry; each Complete is one attempt.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	enabled    bool
}

// NewClient creates a chat-completion client. A missing or placeholder API key
// yields a disabled client whose Complete fails without touching the network.
func NewClient(cfg ClientConfig) *Client {
	logger := slog.Default().With("component", "llm")

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var hc http.Client
	if cfg.HTTPClient != nil {
		hc = *cfg.HTTPClient
	}
	hc.Timeout = timeout

	enabled := config.IsUsableAPIKey(cfg.APIKey)
	if !enabled {
		logger.Debug("llm client disabled, no usable API key")
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &hc,
		logger:     logger,
		enabled:    enabled,
	}
}

// IsEnabled returns true if an API key is configured
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// Complete sends prompt as a single user message and returns the first
// choice's content with surrounding whitespace removed.
//
// Errors are typed: ErrorTypeMissingCredential when the client is disabled,
// ErrorTypeHTTP for transport failures and non-2xx statuses, and
// ErrorTypeMalformedResponse for 2xx bodies without usable content, and
// ErrorTypeSchema when go-openai refuses the request before it is sent.
func (c *Client) Complete(ctx context.Context, prompt string, llmCfg agent.LLMConfig) (string, error) {
	if !c.enabled {
		return "", errors.MissingCredentialError(config.APIKeyEnv)
	}

	req := buildRequest(prompt, llmCfg)

	doer := &captureDoer{client: c.httpClient, zeroTemperature: llmCfg.EffectiveTemperature() == 0}
	oaCfg := openai.DefaultConfig(c.apiKey)
	oaCfg.BaseURL = c.baseURL
	oaCfg.HTTPClient = doer
	client := openai.NewClientWithConfig(oaCfg)

	c.logger.Debug("sending chat completion",
		"model", req.Model,
		"temperature", llmCfg.EffectiveTemperature(),
		"max_tokens", req.MaxTokens,
		"prompt", Snippet(prompt, promptSnippetLength),
	)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		return "", c.classify(err, doer)
	}
	if doer.status < 200 || doer.status > 299 {
		return "", c.statusError(nil, doer)
	}

	if len(resp.Choices) == 0 {
		e := errors.MalformedResponseErrorf("no 'choices' in LLM response or choices array is empty").
			WithContext("response", truncate(doer.body))
		if providerErr := gjson.GetBytes(doer.body, "error"); providerErr.Exists() {
			msg := providerErr.Get("message").String()
			if msg == "" {
				msg = "Unknown error"
			}
			e.Message = fmt.Sprintf("%s (provider error: %s)", e.Message, msg)
			e.WithContext("provider_error", msg)
		}
		return "", e
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.MalformedResponseErrorf("LLM response content is empty or malformed").
			WithContext("response", truncate(doer.body))
	}

	c.logger.Debug("chat completion finished",
		"model", resp.Model,
		"duration_ms", elapsed.Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"response_length", len(content),
	)

	return content, nil
}

// buildRequest maps the agent's llm_config onto the wire request, applying
// defaults for omitted temperature and max_tokens.
func buildRequest(prompt string, llmCfg agent.LLMConfig) openai.ChatCompletionRequest {
	temperature := float32(llmCfg.EffectiveTemperature())
	if temperature == 0 {
		// go-openai omits a zero temperature; captureDoer writes the 0 back
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model: llmCfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
		MaxTokens:   llmCfg.EffectiveMaxTokens(),
	}
}

// classify turns a go-openai failure into a typed error using what the
// capturing doer saw on the wire.
func (c *Client) classify(err error, doer *captureDoer) error {
	if !doer.sent {
		c.logger.Debug("chat completion request rejected before sending", "error", err)
		return errors.Wrap(err, errors.ErrorTypeSchema, "llm_config cannot be sent as a chat completion request")
	}
	if doer.status == 0 {
		c.logger.Debug("chat completion transport failure", "error", err)
		return errors.HTTPErrorf(err, "error calling LLM API")
	}
	if doer.status < 200 || doer.status > 299 {
		return c.statusError(err, doer)
	}
	return errors.Wrap(err, errors.ErrorTypeMalformedResponse, "LLM response could not be decoded").
		WithContext("response", truncate(doer.body))
}

func (c *Client) statusError(err error, doer *captureDoer) error {
	c.logger.Debug("chat completion rejected", "status", doer.status)

	msg := fmt.Sprintf("error calling LLM API: status %d", doer.status)
	if providerMsg := gjson.GetBytes(doer.body, "error.message").String(); providerMsg != "" {
		msg = fmt.Sprintf("%s: %s", msg, providerMsg)
	}

	return errors.HTTPErrorf(err, "%s", msg).
		WithContext("status", doer.status).
		WithContext("detail", errorDetail(doer.body))
}

// errorDetail renders a response body for diagnostics: indented JSON when the
// body parses, the raw text otherwise.
func errorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && gjson.ValidBytes(trimmed) {
		return strings.TrimSpace(string(pretty.Pretty(trimmed)))
	}
	return truncate(trimmed)
}

func truncate(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError]) + "..."
	}
	return string(body)
}

// captureDoer records the status and body of the response it returns so a
// failed decode can still be explained. One doer serves one call.
type captureDoer struct {
	client          *http.Client
	zeroTemperature bool
	sent            bool
	status          int
	body            []byte
}

func (d *captureDoer) Do(req *http.Request) (*http.Response, error) {
	d.sent = true
	if d.zeroTemperature {
		if err := rewriteTemperature(req, "0"); err != nil {
			return nil, err
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	d.status = resp.StatusCode
	d.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// rewriteTemperature replaces the top-level temperature value in req's JSON
// body with raw.
func rewriteTemperature(req *http.Request, raw string) error {
	if req.Body == nil {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if t := gjson.GetBytes(body, "temperature"); t.Exists() && t.Index > 0 {
		rewritten := make([]byte, 0, len(body))
		rewritten = append(rewritten, body[:t.Index]...)
		rewritten = append(rewritten, raw...)
		rewritten = append(rewritten, body[t.Index+len(t.Raw):]...)
		body = rewritten
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return nil
}
