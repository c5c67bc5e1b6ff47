// Package stubs generates a typed Go wrapper for a connected server's
// operations. The generated source is cached per launch command so editors
// and reviewers can see the concrete call surface of a server without
// connecting to it.
package stubs

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcp2go/mcp2go/channel"
	"github.com/mcp2go/mcp2go/errors"
	"github.com/mcp2go/mcp2go/schema"
	"github.com/zeebo/blake3"
)

// Generate renders a Go source file declaring one typed method per
// operation descriptor. Required parameters become typed arguments; optional
// parameters ride in a trailing opts map.
func Generate(pkg string, command []string, descriptors []channel.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by mcp2go from %q. DO NOT EDIT.\n", strings.Join(command, " "))
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("import \"github.com/mcp2go/mcp2go\"\n\n")
	b.WriteString("// Server wraps an mcp2go session with typed operation methods.\n")
	b.WriteString("type Server struct {\n\tSession *mcp2go.Server\n}\n")

	for _, d := range descriptors {
		writeMethod(&b, d)
	}
	return b.String()
}

func writeMethod(b *strings.Builder, d channel.Descriptor) {
	name := ExportedName(d.Name)
	b.WriteString("\n")
	if d.Description != "" {
		fmt.Fprintf(b, "// %s %s\n", name, strings.ReplaceAll(strings.TrimSpace(d.Description), "\n", " "))
	}

	var params []string
	var optional []channel.Param
	for _, p := range d.Params {
		if p.Required {
			params = append(params, fmt.Sprintf("%s %s", localName(p.Name), schema.TypeName(p.Type)))
		} else {
			optional = append(optional, p)
		}
	}
	if len(optional) > 0 {
		params = append(params, "opts map[string]any")
	}
	fmt.Fprintf(b, "func (s *Server) %s(%s) (string, error) {\n", name, strings.Join(params, ", "))

	b.WriteString("\targs := map[string]any{")
	first := true
	for _, p := range d.Params {
		if !p.Required {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q: %s", p.Name, localName(p.Name))
		first = false
	}
	b.WriteString("}\n")
	if len(optional) > 0 {
		b.WriteString("\tfor k, v := range opts {\n\t\targs[k] = v\n\t}\n")
	}
	fmt.Fprintf(b, "\treturn s.Session.Call(%q, args)\n", schema.CamelToSnake(d.Name))
	b.WriteString("}\n")
}

// ExportedName converts an operation identifier into an exported Go method
// name: "echoMessage" and "echo_message" both become "EchoMessage".
func ExportedName(op string) string {
	parts := strings.Split(schema.CamelToSnake(op), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// localName makes a descriptor parameter safe to use as a Go argument name.
func localName(param string) string {
	name := schema.SnakeToCamel(schema.CamelToSnake(param))
	if name == "" {
		return "arg"
	}
	// "args" and "opts" would shadow the generated method's own locals.
	switch name {
	case "type", "func", "map", "range", "string", "args", "opts", "s":
		return name + "Arg"
	}
	return name
}

// CachePath returns the cache location for a launch command's stub: the
// same command always hashes to the same file.
func CachePath(command []string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve home directory")
	}
	return CachePathIn(filepath.Join(home, ".cache", "mcp2go", "stubs"), command), nil
}

// CachePathIn is CachePath rooted at an explicit directory.
func CachePathIn(dir string, command []string) string {
	sum := blake3.Sum256([]byte(strings.Join(command, " ")))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+".go")
}

// Save writes a generated stub, creating parent directories as needed.
func Save(content, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "cannot create stub directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "cannot write stub")
	}
	return nil
}
