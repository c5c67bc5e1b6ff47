package channel

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/mcp2go/mcp2go/errors"
	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startLeftover simulates a subprocess surviving from an earlier connect
// attempt that failed after the handshake.
func startLeftover(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	return cmd
}

func TestConnectReapsPreviousSubprocess(t *testing.T) {
	leftover := startLeftover(t)
	s := NewStdio([]string{"mcp2go-no-such-server"})
	s.cmd = leftover

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Connect(ctx)
	var connErr *errors.ConnectionError
	require.ErrorAs(t, err, &connErr)

	// The earlier subprocess must be gone before the relaunch.
	waitErr := leftover.Wait()
	require.Error(t, waitErr)
	assert.Contains(t, waitErr.Error(), "killed")
	assert.Nil(t, s.cmd)
}

func TestShutdownKillsSubprocess(t *testing.T) {
	leftover := startLeftover(t)
	s := NewStdio([]string{"mcp2go-no-such-server"})
	s.cmd = leftover

	require.NoError(t, s.Shutdown())
	waitErr := leftover.Wait()
	require.Error(t, waitErr)
	assert.Contains(t, waitErr.Error(), "killed")

	require.NoError(t, s.Shutdown())
}

func TestDescriptorFromToolOrdersParams(t *testing.T) {
	tool := &mcpsdk.Tool{
		Name:        "search",
		Description: "Search the index",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"zone":  {Type: "string", Description: "shard to search"},
				"query": {Type: "string"},
				"limit": {Type: "integer", Default: json.RawMessage(`10`)},
			},
			Required: []string{"query", "zone"},
		},
	}

	d := descriptorFromTool(tool)
	assert.Equal(t, "search", d.Name)
	assert.Equal(t, "Search the index", d.Description)
	require.Len(t, d.Params, 3)

	// Required first, then alphabetical within each group.
	assert.Equal(t, "query", d.Params[0].Name)
	assert.Equal(t, "zone", d.Params[1].Name)
	assert.Equal(t, "limit", d.Params[2].Name)

	assert.True(t, d.Params[0].Required)
	assert.True(t, d.Params[1].Required)
	assert.False(t, d.Params[2].Required)
	assert.Equal(t, "shard to search", d.Params[1].Description)
	assert.Equal(t, float64(10), d.Params[2].Default)
}

func TestDescriptorFromToolWithoutSchema(t *testing.T) {
	d := descriptorFromTool(&mcpsdk.Tool{Name: "ping"})
	assert.Equal(t, "ping", d.Name)
	assert.Empty(t, d.Params)
}

func TestDescriptorFromToolUntypedProperty(t *testing.T) {
	tool := &mcpsdk.Tool{
		Name: "store",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"value": {},
			},
		},
	}
	d := descriptorFromTool(tool)
	require.Len(t, d.Params, 1)
	assert.Equal(t, "", d.Params[0].Type, "untyped properties stay unchecked")
}

func TestEnvelopeFromResult(t *testing.T) {
	result := &mcpsdk.CallToolResult{Content: []mcpsdk.Content{
		&mcpsdk.TextContent{Text: "hello"},
		&mcpsdk.ImageContent{},
		&mcpsdk.AudioContent{},
	}}
	env := envelopeFromResult(result)
	require.Len(t, env.Content, 3)
	assert.Equal(t, Content{Type: "text", Text: "hello"}, env.Content[0])
	assert.Equal(t, "image", env.Content[1].Type)
	assert.Equal(t, "audio", env.Content[2].Type)
}

func TestTextOrShape(t *testing.T) {
	withText := &Envelope{Content: []Content{
		{Type: "text", Text: "went "},
		{Type: "image"},
		{Type: "text", Text: "wrong"},
	}}
	assert.Equal(t, "went wrong", withText.textOrShape())

	noText := &Envelope{Content: []Content{{Type: "image"}, {Type: "audio"}}}
	assert.Equal(t, "no error text (content: image, audio)", noText.textOrShape())
}

func TestInputSchemaMap(t *testing.T) {
	d := Descriptor{
		Name: "echoMessage",
		Params: []Param{
			{Name: "message", Type: "string", Description: "text to echo", Required: true},
			{Name: "shout", Type: "boolean"},
		},
	}
	m := d.InputSchemaMap()
	assert.Equal(t, "object", m["type"])

	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "message")
	require.Contains(t, props, "shout")
	assert.Equal(t, []string{"message"}, m["required"])
}
