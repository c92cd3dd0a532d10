package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Result is one completed agent run
type Result struct {
	RunID    string
	Agent    string
	Model    string
	Prompt   string
	Response string
	Duration time.Duration
}

// Formatter defines output formatting interface
type Formatter interface {
	Format(result *Result, w io.Writer) error
}

// Format selects a Formatter
type Format string

const (
	FormatText  Format = "text"  // separator-wrapped response (default)
	FormatJSON  Format = "json"  // machine-readable result
	FormatQuiet Format = "quiet" // response only, for pipes
)

// ParseFormat accepts text, json or quiet; empty means text
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatQuiet:
		return f, nil
	default:
		return FormatText, fmt.Errorf("unknown output format %q (want text, json or quiet)", s)
	}
}

// ShowsProgress reports whether step-by-step progress lines belong on stdout
// alongside this format
func (f Format) ShowsProgress() bool {
	return f == FormatText || f == ""
}

// NewFormatter creates the formatter for format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatQuiet:
		return &QuietFormatter{}
	default:
		return &TextFormatter{}
	}
}
