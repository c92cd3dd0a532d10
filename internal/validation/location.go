package validation

import (
	stderrors "errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Location points at a validation failure
type Location struct {
	Instance []string // keys and indexes into the input value
	Schema   []string // keywords into the schema, ending with the failing keyword
	Reason   string   // the failing keyword's message
}

// schemaNode is one subschema and the keyword path that reaches it
type schemaNode struct {
	schema *jsonschema.Schema
	parent *jsonschema.Schema
	tokens []string
}

var leafKeywordPattern = regexp.MustCompile(`^([A-Za-z$]+)(\[[^\]]*\])?: `)

// locate reconstructs where instance failed root. jsonschema-go names each
// subschema it descends into ("validating /properties/user") and ends the
// chain with the keyword error; the instance side is recovered by walking
// instance along the same subschemas.
func locate(root *jsonschema.Schema, instance any, err error) Location {
	labels, leaf := schemaLabels(err)
	loc := Location{Reason: leaf}

	nodes := indexSchemas(root)
	current := instance
	known := true
	var prev *schemaNode

	for _, label := range labels {
		n, ok := nodes[label]
		if !ok {
			// a remote or unnamed schema; nothing below it can be placed
			known = false
			prev = nil
			continue
		}
		if known && prev != nil {
			if n.parent == prev.schema {
				current, known = descend(&loc, n.tokens[len(prev.tokens):], root, prev.schema, n.schema, current)
			}
			// otherwise a $ref jump: same instance, different schema
		}
		loc.Schema = n.tokens
		prev = n
	}

	loc.Schema = append([]string(nil), loc.Schema...)
	if m := leafKeywordPattern.FindStringSubmatch(leaf); m != nil {
		loc.Schema = append(loc.Schema, m[1])
	} else if strings.HasPrefix(leaf, "unexpected additional properties") {
		loc.Schema = append(loc.Schema, "additionalProperties")
	}
	return loc
}

// schemaLabels splits the error chain into the subschema labels, outermost
// first, and the final keyword message.
func schemaLabels(err error) ([]string, string) {
	var labels []string
	for err != nil {
		inner := stderrors.Unwrap(err)
		if inner == nil {
			return labels, err.Error()
		}
		label := strings.TrimSuffix(err.Error(), ": "+inner.Error())
		if !strings.HasPrefix(label, "validating ") {
			return labels, err.Error()
		}
		labels = append(labels, strings.TrimPrefix(label, "validating "))
		err = inner
	}
	return labels, ""
}

// indexSchemas labels every subschema of root the way jsonschema-go does in
// its messages: "root", the JSON pointer from the root, or the $id.
func indexSchemas(root *jsonschema.Schema) map[string]*schemaNode {
	nodes := make(map[string]*schemaNode)

	var walk func(s, parent *jsonschema.Schema, tokens []string)
	walk = func(s, parent *jsonschema.Schema, tokens []string) {
		if s == nil {
			return
		}
		n := &schemaNode{schema: s, parent: parent, tokens: tokens}
		label := "root"
		if len(tokens) > 0 {
			label = pointer(tokens)
		}
		nodes[label] = n
		if s.ID != "" {
			nodes[s.ID] = n
		}

		child := func(c *jsonschema.Schema, more ...string) {
			next := make([]string, 0, len(tokens)+len(more))
			next = append(append(next, tokens...), more...)
			walk(c, s, next)
		}
		for name, m := range map[string]map[string]*jsonschema.Schema{
			"$defs":             s.Defs,
			"definitions":       s.Definitions,
			"properties":        s.Properties,
			"patternProperties": s.PatternProperties,
			"dependentSchemas":  s.DependentSchemas,
		} {
			for key, c := range m {
				child(c, name, key)
			}
		}
		for name, list := range map[string][]*jsonschema.Schema{
			"prefixItems": s.PrefixItems,
			"allOf":       s.AllOf,
			"anyOf":       s.AnyOf,
			"oneOf":       s.OneOf,
		} {
			for i, c := range list {
				child(c, name, strconv.Itoa(i))
			}
		}
		for name, c := range map[string]*jsonschema.Schema{
			"items":                 s.Items,
			"additionalItems":       s.AdditionalItems,
			"contains":              s.Contains,
			"unevaluatedItems":      s.UnevaluatedItems,
			"additionalProperties":  s.AdditionalProperties,
			"propertyNames":         s.PropertyNames,
			"unevaluatedProperties": s.UnevaluatedProperties,
			"not":                   s.Not,
			"if":                    s.If,
			"then":                  s.Then,
			"else":                  s.Else,
			"contentSchema":         s.ContentSchema,
		} {
			child(c, name)
		}
	}

	walk(root, nil, nil)
	return nodes
}

// descend moves current from parent's instance to child's along edge,
// recording the key or index it took. It returns false once the position
// can no longer be determined.
func descend(loc *Location, edge []string, root, parent, child *jsonschema.Schema, current any) (any, bool) {
	switch edge[0] {
	case "properties":
		obj, ok := current.(map[string]any)
		if !ok || len(edge) < 2 {
			return nil, false
		}
		v, ok := obj[edge[1]]
		if !ok {
			return nil, false
		}
		loc.Instance = append(loc.Instance, edge[1])
		return v, true

	case "prefixItems":
		arr, ok := current.([]any)
		if !ok || len(edge) < 2 {
			return nil, false
		}
		i, err := strconv.Atoi(edge[1])
		if err != nil || i >= len(arr) {
			return nil, false
		}
		loc.Instance = append(loc.Instance, edge[1])
		return arr[i], true

	case "items":
		arr, ok := current.([]any)
		if !ok {
			return nil, false
		}
		var indexes []string
		for i := len(parent.PrefixItems); i < len(arr); i++ {
			indexes = append(indexes, strconv.Itoa(i))
		}
		i, ok := firstFailing(root, child, indexes, func(k string) any {
			n, _ := strconv.Atoi(k)
			return arr[n]
		})
		if !ok {
			return nil, false
		}
		loc.Instance = append(loc.Instance, i)
		n, _ := strconv.Atoi(i)
		return arr[n], true

	case "additionalProperties", "patternProperties":
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		var match func(string) bool
		if edge[0] == "patternProperties" {
			if len(edge) < 2 {
				return nil, false
			}
			re, err := regexp.Compile(edge[1])
			if err != nil {
				return nil, false
			}
			match = re.MatchString
		} else {
			match = func(k string) bool {
				_, declared := parent.Properties[k]
				return !declared
			}
		}
		var keys []string
		for k := range obj {
			if match(k) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		k, ok := firstFailing(root, child, keys, func(k string) any { return obj[k] })
		if !ok {
			return nil, false
		}
		loc.Instance = append(loc.Instance, k)
		return obj[k], true

	case "allOf", "anyOf", "oneOf", "not", "if", "then", "else", "dependentSchemas":
		// applied to the same instance
		return current, true

	default:
		return nil, false
	}
}

// firstFailing returns the first candidate whose value does not satisfy s.
// s is resolved on its own, carrying the root's definitions so local $refs
// still resolve.
func firstFailing(root, s *jsonschema.Schema, candidates []string, value func(string) any) (string, bool) {
	alone := *s
	if alone.Defs == nil {
		alone.Defs = root.Defs
	}
	if alone.Definitions == nil {
		alone.Definitions = root.Definitions
	}
	resolved, err := alone.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return "", false
	}
	for _, c := range candidates {
		if resolved.Validate(value(c)) != nil {
			return c, true
		}
	}
	return "", false
}
