// Package prompt fills {{key}} placeholders in agent prompt templates.
//
// Substitution is literal and runs key by key over the template: there is no
// escaping syntax, and placeholders without a matching key are left as-is.
package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Fill replaces every occurrence of {{key}} in template with String(data[key]).
// Keys are applied one at a time in the order given by keys, normally the
// input document's order from KeyOrder, so a substituted value that itself
// looks like {{other}} is filled only if other comes later. Keys absent from
// data are skipped; keys of data missing from keys go last, sorted.
func Fill(template string, keys []string, data map[string]any) string {
	order := make([]string, 0, len(data))
	listed := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := data[k]; ok && !listed[k] {
			listed[k] = true
			order = append(order, k)
		}
	}
	var rest []string
	for k := range data {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	out := template
	for _, k := range order {
		out = strings.ReplaceAll(out, "{{"+k+"}}", String(data[k]))
	}
	return out
}

// KeyOrder returns the top-level keys of a JSON object in document order,
// each once at its first position. It returns nil for anything but an object.
func KeyOrder(raw string) []string {
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil
	}

	var keys []string
	seen := make(map[string]bool)
	doc.ForEach(func(key, _ gjson.Result) bool {
		if k := key.String(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
		return true
	})
	return keys
}

// String returns the text substituted for a JSON value.
// Whole numbers print without a fractional part (30, not 30.0).
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e21 {
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.Number:
		return val.String()
	case int, int64, int32:
		return fmt.Sprintf("%d", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// Placeholders returns the distinct placeholder names in template, in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Unmatched returns the placeholders in template that have no key in data
func Unmatched(template string, data map[string]any) []string {
	var out []string
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
