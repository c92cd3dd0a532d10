package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/sovereignos/agentrun/internal/errors"
)

// SchemaValidator checks input values against a compiled JSON Schema.
// Schema semantics (draft 2020-12) come entirely from jsonschema-go.
type SchemaValidator struct {
	resolved *jsonschema.Resolved
	logger   *slog.Logger
}

// NewSchemaValidator parses and resolves a JSON Schema document.
// An empty document or {} accepts every instance.
func NewSchemaValidator(schema []byte) (*SchemaValidator, error) {
	if len(strings.TrimSpace(string(schema))) == 0 {
		schema = []byte("{}")
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "input_schema is not a valid JSON Schema document")
	}

	resolved, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "input_schema could not be resolved")
	}

	return &SchemaValidator{
		resolved: resolved,
		logger:   slog.Default().With("component", "validation"),
	}, nil
}

// Validate reports whether instance satisfies the schema. instance must be a
// value produced by encoding/json (map[string]any, []any, float64, string,
// bool or nil); it is not modified.
func (v *SchemaValidator) Validate(instance any) error {
	err := v.resolved.Validate(instance)
	if err == nil {
		return nil
	}

	loc := locate(v.resolved.Schema(), instance, err)
	if loc.Reason == "" {
		loc.Reason = err.Error()
	}
	v.logger.Debug("input rejected by schema",
		"reason", loc.Reason,
		"path", pointer(loc.Instance),
		"schema_path", pointer(loc.Schema))

	return errors.InputSchemaError(err).
		WithContext("reason", loc.Reason).
		WithContext("path", loc.Instance).
		WithContext("schema_path", loc.Schema)
}

// ValidateInput compiles schema and validates instance against it in one step
func ValidateInput(instance any, schema []byte) error {
	v, err := NewSchemaValidator(schema)
	if err != nil {
		return err
	}
	return v.Validate(instance)
}

// Diagnostic renders a validation failure the way it is shown to the operator:
// the failing keyword's message, then the location in the input and in the
// schema when they are known.
func Diagnostic(err error) string {
	var sb strings.Builder
	sb.WriteString("Error: Input data validation failed.\n")

	e, ok := errors.As(err)
	if !ok {
		sb.WriteString(fmt.Sprintf("Reason: %v\n", err))
		return sb.String()
	}

	reason := e.ContextString("reason")
	if reason == "" {
		reason = e.Error()
	}
	sb.WriteString(fmt.Sprintf("Reason: %s\n", reason))

	if path, _ := e.Context["path"].([]string); len(path) > 0 {
		sb.WriteString(fmt.Sprintf("Path: %s\n", strings.Join(path, " -> ")))
	}
	if schemaPath, _ := e.Context["schema_path"].([]string); len(schemaPath) > 0 {
		sb.WriteString(fmt.Sprintf("Schema Path: %s\n", strings.Join(schemaPath, " -> ")))
	}
	return sb.String()
}

// pointer renders tokens as a JSON pointer
func pointer(tokens []string) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString("/")
		sb.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(t))
	}
	return sb.String()
}
