package schema

import (
	"testing"

	"github.com/mcp2go/mcp2go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	assert.Equal(t, []string{"npx", "-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
		ParseCommand("npx -y @modelcontextprotocol/server-filesystem /tmp"))
	assert.Equal(t, []string{"server"}, ParseCommand("  server  "))
	assert.Empty(t, ParseCommand(""))
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"echoMessage":   "echo_message",
		"EchoMessage":   "echo_message",
		"add":           "add",
		"getUserID":     "get_user_id",
		"HTTPRequest":   "http_request",
		"parseHTTPBody": "parse_http_body",
		"IOError":       "io_error",
		"already_snake": "already_snake",
		"A":             "a",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelToSnake(in), "CamelToSnake(%q)", in)
	}
}

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"echo_message": "echoMessage",
		"add":          "add",
		"get_user_id":  "getUserId",
		"__odd__":      "odd",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SnakeToCamel(in), "SnakeToCamel(%q)", in)
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "string", TypeName("string"))
	assert.Equal(t, "int", TypeName("integer"))
	assert.Equal(t, "float64", TypeName("number"))
	assert.Equal(t, "bool", TypeName("boolean"))
	assert.Equal(t, "[]any", TypeName("array"))
	assert.Equal(t, "map[string]any", TypeName("object"))
	assert.Equal(t, "any", TypeName(""))
	assert.Equal(t, "any", TypeName("whatever"))
}

func TestCheckTypeAccepts(t *testing.T) {
	assert.NoError(t, CheckType("op", "p", "string", "hello"))
	assert.NoError(t, CheckType("op", "p", "boolean", true))
	assert.NoError(t, CheckType("op", "p", "integer", 7))
	assert.NoError(t, CheckType("op", "p", "integer", float64(7)), "whole JSON numbers pass as integers")
	assert.NoError(t, CheckType("op", "p", "number", 7))
	assert.NoError(t, CheckType("op", "p", "number", 7.5))
	assert.NoError(t, CheckType("op", "p", "array", []any{1, 2}))
	assert.NoError(t, CheckType("op", "p", "object", map[string]any{"k": "v"}))
	assert.NoError(t, CheckType("op", "p", "null", nil))
	assert.NoError(t, CheckType("op", "p", "", 42), "untagged params are not checked")
}

func TestCheckTypeRejects(t *testing.T) {
	err := CheckType("echoMessage", "message", "string", 42)
	var typeErr *errors.ArgumentTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "echoMessage", typeErr.Op)
	assert.Equal(t, "message", typeErr.Param)
	assert.Equal(t, "string", typeErr.Want)
	assert.Equal(t, "int", typeErr.Got)

	assert.Error(t, CheckType("op", "p", "integer", 7.5), "fractional values are not integers")
	assert.Error(t, CheckType("op", "p", "boolean", "true"))
	assert.Error(t, CheckType("op", "p", "number", "7"))
	assert.Error(t, CheckType("op", "p", "null", "nil"))
}
