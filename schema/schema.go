// Package schema holds the naming and typing conventions shared by the
// binder and the stub generator: launch-command splitting, conversion
// between external camelCase identifiers and snake_case, and boundary-level
// checks of argument values against JSON Schema type tags.
package schema

import (
	"strings"
	"unicode"

	"github.com/mcp2go/mcp2go/errors"
)

// ParseCommand splits a launch command line into argv form. Quoting is not
// interpreted; servers needing shell semantics should be launched through
// an explicit argv.
func ParseCommand(command string) []string {
	return strings.Fields(command)
}

// CamelToSnake converts a camelCase or PascalCase identifier to snake_case.
// Acronym runs collapse into a single word: "HTTPRequest" -> "http_request",
// "getUserID" -> "get_user_id".
func CamelToSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (unicode.IsUpper(runes[i-1]) && nextLower)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnakeToCamel converts a snake_case identifier to camelCase.
func SnakeToCamel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(strings.ToLower(p))
			first = false
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}

// TypeName reports the Go-facing name for a JSON Schema type tag, used in
// error messages and generated stubs. Unknown or empty tags map to "any".
func TypeName(tag string) string {
	switch tag {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		return "[]any"
	case "object":
		return "map[string]any"
	case "null":
		return "nil"
	default:
		return "any"
	}
}

// CheckType verifies that a decoded argument value is acceptable for the
// given JSON Schema type tag. Integer values arriving as whole float64s are
// accepted for "integer" because that is how JSON numbers decode.
func CheckType(op, param, tag string, value any) error {
	ok := true
	switch tag {
	case "string":
		_, ok = value.(string)
	case "boolean":
		_, ok = value.(bool)
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			ok = v == float64(int64(v))
		case float32:
			ok = v == float32(int32(v))
		default:
			ok = false
		}
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			ok = false
		}
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	case "null":
		ok = value == nil
	default:
		// Unknown tags are not checked; the server validates them.
	}
	if !ok {
		return &errors.ArgumentTypeError{
			Op:    op,
			Param: param,
			Want:  TypeName(tag),
			Got:   goTypeName(value),
		}
	}
	return nil
}

func goTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "float64"
	case []any:
		return "[]any"
	case map[string]any:
		return "map[string]any"
	default:
		return "unsupported type"
	}
}
