package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter emits the whole Result as indented JSON
type JSONFormatter struct{}

type jsonResult struct {
	RunID      string `json:"run_id,omitempty"`
	Agent      string `json:"agent"`
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Response   string `json:"response"`
	DurationMS int64  `json:"duration_ms"`
}

func (f *JSONFormatter) Format(result *Result, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonResult{
		RunID:      result.RunID,
		Agent:      result.Agent,
		Model:      result.Model,
		Prompt:     result.Prompt,
		Response:   result.Response,
		DurationMS: result.Duration.Milliseconds(),
	})
}
