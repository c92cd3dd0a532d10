package llm

import (
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter API root; requests go to <base>/chat/completions
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds the whole chat-completion call
	DefaultTimeout = 60 * time.Second

	// promptSnippetLength is how much of the prompt is echoed in logs
	promptSnippetLength = 200
)

// ClientConfig holds what the client needs to reach the provider.
// The credential is passed in explicitly; the client never reads the environment.
type ClientConfig struct {
	APIKey  string
	BaseURL string        // empty means DefaultBaseURL
	Timeout time.Duration // zero means DefaultTimeout

	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Snippet returns the first n runes of s followed by "..." when truncated
func Snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
