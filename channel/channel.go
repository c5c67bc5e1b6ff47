// Package channel abstracts the connection to one MCP server subprocess.
// The Channel interface is what the binder and the server facade consume;
// Stdio is the production implementation speaking the MCP protocol over the
// subprocess's standard input/output via the official SDK.
package channel

import "context"

// Param describes one parameter of an operation's input schema.
type Param struct {
	Name        string
	Type        string // JSON Schema type tag: string, integer, number, boolean, object, array
	Description string
	Required    bool
	Default     any // nil when the schema declares none
}

// Descriptor describes one remotely callable operation. Descriptors are
// immutable once retrieved; params are ordered required-first, each group
// alphabetical.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// ParamNames returns the declared parameter names in descriptor order.
func (d Descriptor) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// InputSchemaMap renders the descriptor's schema as a plain JSON Schema
// object of the shape LLM SDKs expect for function calling.
func (d Descriptor) InputSchemaMap() map[string]any {
	properties := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{}
		if p.Type != "" {
			prop["type"] = p.Type
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	m := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

// Content is one typed item of a result envelope.
type Content struct {
	Type string
	Text string
}

// Envelope is the structured wrapper an operation result arrives in.
type Envelope struct {
	Content []Content
}

// Channel is the transport-facing collaborator: it owns the server
// subprocess and its streams. Implementations are not safe for concurrent
// use; all calls are expected to arrive serialized through the worker.
type Channel interface {
	// Connect launches the subprocess and performs the protocol handshake.
	Connect(ctx context.Context) error

	// ListOperations retrieves the full set of operation descriptors.
	ListOperations(ctx context.Context) ([]Descriptor, error)

	// Invoke calls one operation by its canonical name.
	Invoke(ctx context.Context, name string, args map[string]any) (*Envelope, error)

	// Shutdown terminates the subprocess and releases the streams.
	// Idempotent.
	Shutdown() error
}
