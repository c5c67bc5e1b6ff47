// Package binder turns operation descriptors into locally callable,
// argument-validated bindings. Validation is data-driven against the stored
// descriptor; nothing reaches the server until the argument mapping has been
// checked against the schema.
package binder

import (
	"context"
	"time"

	"github.com/mcp2go/mcp2go/channel"
	"github.com/mcp2go/mcp2go/errors"
	"github.com/mcp2go/mcp2go/runner"
	"github.com/mcp2go/mcp2go/schema"
)

// NormalizeName converts an external-style operation identifier into the
// local snake_case convention. Total and deterministic; injectivity within
// one descriptor list is enforced by BindAll.
func NormalizeName(raw string) string {
	return schema.CamelToSnake(raw)
}

// Binding is a callable wrapping exactly one operation descriptor. It keeps
// the canonical (un-normalized) name for the wire and the gateway it
// executes through. Bindings are never mutated after construction.
type Binding struct {
	descriptor channel.Descriptor
	gateway    *runner.Gateway
	channel    channel.Channel
}

// Name returns the canonical operation identifier as the server declared it.
func (b *Binding) Name() string { return b.descriptor.Name }

// Description returns the operation's human-readable description.
func (b *Binding) Description() string { return b.descriptor.Description }

// Descriptor returns the descriptor the binding was built from.
func (b *Binding) Descriptor() channel.Descriptor { return b.descriptor }

// BindAll builds one binding per descriptor, keyed by normalized name.
// A normalized-name collision fails the whole batch with NameCollisionError;
// no partial mapping is ever returned.
func BindAll(descriptors []channel.Descriptor, gw *runner.Gateway, ch channel.Channel) (map[string]*Binding, error) {
	bindings := make(map[string]*Binding, len(descriptors))
	owner := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		normalized := NormalizeName(d.Name)
		if first, taken := owner[normalized]; taken {
			return nil, &errors.NameCollisionError{
				Normalized: normalized,
				First:      first,
				Second:     d.Name,
			}
		}
		owner[normalized] = d.Name
		bindings[normalized] = &Binding{descriptor: d, gateway: gw, channel: ch}
	}
	return bindings, nil
}

// Validate checks an argument mapping against the descriptor's schema and
// returns the mapping that will go on the wire: schema defaults filled in,
// parameters without a default simply absent. The input map is not mutated.
func (b *Binding) Validate(args map[string]any) (map[string]any, error) {
	op := b.descriptor.Name
	params := make(map[string]channel.Param, len(b.descriptor.Params))
	for _, p := range b.descriptor.Params {
		params[p.Name] = p
	}

	for name := range args {
		if _, declared := params[name]; !declared {
			return nil, &errors.UnknownArgumentError{
				Op:    op,
				Param: name,
				Known: b.descriptor.ParamNames(),
			}
		}
	}

	validated := make(map[string]any, len(b.descriptor.Params))
	for _, p := range b.descriptor.Params {
		value, supplied := args[p.Name]
		if !supplied {
			if p.Required {
				return nil, &errors.ArgumentTypeError{
					Op:      op,
					Param:   p.Name,
					Want:    schema.TypeName(p.Type),
					Missing: true,
				}
			}
			if p.Default != nil {
				validated[p.Name] = p.Default
			}
			continue
		}
		if err := schema.CheckType(op, p.Name, p.Type, value); err != nil {
			return nil, err
		}
		validated[p.Name] = value
	}
	return validated, nil
}

// Invoke validates args, executes the remote call through the gateway, and
// unwraps the result envelope into a plain text value.
func (b *Binding) Invoke(args map[string]any) (string, error) {
	return b.invoke(args, 0)
}

// InvokeTimeout is Invoke with a per-call timeout overriding the gateway's
// default.
func (b *Binding) InvokeTimeout(args map[string]any, timeout time.Duration) (string, error) {
	return b.invoke(args, timeout)
}

func (b *Binding) invoke(args map[string]any, timeout time.Duration) (string, error) {
	validated, err := b.Validate(args)
	if err != nil {
		return "", err
	}
	op := b.descriptor.Name
	task := func(ctx context.Context) (any, error) {
		env, err := b.channel.Invoke(ctx, op, validated)
		if err != nil {
			return nil, err
		}
		return Unwrap(op, env)
	}
	var value any
	if timeout > 0 {
		value, err = b.gateway.RunTimeout(op, task, timeout)
	} else {
		value, err = b.gateway.Run(op, task)
	}
	if err != nil {
		return "", err
	}
	text, _ := value.(string)
	return text, nil
}

// Unwrap extracts the plain text payload from a result envelope,
// concatenating the text content items. Any content item of another type
// fails with ResultUnwrapError rather than guessing an extraction rule.
func Unwrap(op string, env *channel.Envelope) (string, error) {
	var out string
	for _, c := range env.Content {
		if c.Type != "text" {
			return "", &errors.ResultUnwrapError{Op: op, ContentType: c.Type}
		}
		out += c.Text
	}
	return out, nil
}
