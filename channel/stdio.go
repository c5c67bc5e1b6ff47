package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/mcp2go/mcp2go/errors"
	"github.com/mcp2go/mcp2go/log"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// clientInfo identifies this library to servers during the handshake.
var clientInfo = &mcpsdk.Implementation{Name: "mcp2go", Version: "v0.1.0"}

// Stdio launches an MCP server subprocess and speaks the protocol over its
// standard input/output.
type Stdio struct {
	command []string
	cmd     *exec.Cmd
	conn    *mcpsdk.ClientSession
	closed  bool
	logger  *slog.Logger
}

var _ Channel = (*Stdio)(nil)

// NewStdio prepares a stdio channel for the given argv. The subprocess is
// not launched until Connect.
func NewStdio(command []string) *Stdio {
	return &Stdio{
		command: command,
		logger:  log.WithServer(strings.Join(command, " ")),
	}
}

// Connect launches the server subprocess and performs the MCP handshake.
// The subprocess inherits our stderr so its diagnostics stay visible.
// A retry after a failure later in the startup sequence (discovery,
// binding) still holds the previous subprocess; it is reaped before a
// fresh one is launched.
func (s *Stdio) Connect(ctx context.Context) error {
	s.reap()
	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Stderr = os.Stderr

	client := mcpsdk.NewClient(clientInfo, nil)
	conn, err := client.Connect(ctx, mcpsdk.NewCommandTransport(cmd), nil)
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return &errors.ConnectionError{Command: strings.Join(s.command, " "), Cause: err}
	}
	s.cmd = cmd
	s.conn = conn
	s.logger.Debug("connected to MCP server")
	return nil
}

// ListOperations retrieves every tool declaration, following list cursors
// until the server reports no more pages.
func (s *Stdio) ListOperations(ctx context.Context) ([]Descriptor, error) {
	var descriptors []Descriptor
	params := &mcpsdk.ListToolsParams{}
	for {
		page, err := s.conn.ListTools(ctx, params)
		if err != nil {
			return nil, &errors.TransportError{Op: "tools/list", Cause: err}
		}
		for _, t := range page.Tools {
			descriptors = append(descriptors, descriptorFromTool(t))
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	s.logger.Debug("listed operations", "count", len(descriptors))
	return descriptors, nil
}

// Invoke calls one tool by its canonical name. A stream failure surfaces as
// TransportError; a failure the tool itself declared surfaces as
// OperationFailedError.
func (s *Stdio) Invoke(ctx context.Context, name string, args map[string]any) (*Envelope, error) {
	result, err := s.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, &errors.TransportError{Op: name, Cause: err}
	}
	env := envelopeFromResult(result)
	if result.IsError {
		return nil, &errors.OperationFailedError{Op: name, Message: env.textOrShape()}
	}
	return env, nil
}

// Shutdown closes the session and terminates the server subprocess. Safe to
// call multiple times.
func (s *Stdio) Shutdown() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.reap()
	return nil
}

// reap closes the current session and kills the current subprocess, if any.
func (s *Stdio) reap() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.logger.Debug("terminating MCP server subprocess")
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}

func descriptorFromTool(t *mcpsdk.Tool) Descriptor {
	d := Descriptor{Name: t.Name, Description: t.Description}
	in := t.InputSchema
	if in == nil || len(in.Properties) == 0 {
		return d
	}
	required := make(map[string]bool, len(in.Required))
	for _, name := range in.Required {
		required[name] = true
	}
	for name, prop := range in.Properties {
		// An untyped property keeps an empty tag; such arguments pass
		// through unchecked and the server validates them.
		p := Param{
			Name:     name,
			Required: required[name],
		}
		if prop != nil {
			p.Type = prop.Type
			p.Description = prop.Description
			p.Default = decodeDefault(prop.Default)
		}
		d.Params = append(d.Params, p)
	}
	sort.Slice(d.Params, func(i, j int) bool {
		a, b := d.Params[i], d.Params[j]
		if a.Required != b.Required {
			return a.Required
		}
		return a.Name < b.Name
	})
	return d
}

func decodeDefault(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func envelopeFromResult(result *mcpsdk.CallToolResult) *Envelope {
	env := &Envelope{}
	for _, c := range result.Content {
		switch c := c.(type) {
		case *mcpsdk.TextContent:
			env.Content = append(env.Content, Content{Type: "text", Text: c.Text})
		case *mcpsdk.ImageContent:
			env.Content = append(env.Content, Content{Type: "image"})
		case *mcpsdk.AudioContent:
			env.Content = append(env.Content, Content{Type: "audio"})
		default:
			env.Content = append(env.Content, Content{Type: fmt.Sprintf("%T", c)})
		}
	}
	return env
}

// textOrShape renders the envelope's text payload for error messages,
// falling back to the content type list when nothing is textual.
func (e *Envelope) textOrShape() string {
	var b strings.Builder
	var types []string
	for _, c := range e.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
		types = append(types, c.Type)
	}
	if b.Len() > 0 {
		return b.String()
	}
	return fmt.Sprintf("no error text (content: %s)", strings.Join(types, ", "))
}
