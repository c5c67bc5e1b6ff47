// Package mcp2go turns any MCP server into ordinary blocking Go calls.
//
// A Server is obtained from a launch command and connects lazily on first
// use. Discovered operations are looked up by name (snake_case or the
// server's original camelCase spelling both work) and invoked with a
// keyword-style argument map:
//
//	server, err := mcp2go.Load("npx -y @h1deya/mcp-server-weather")
//	if err != nil {
//		return err
//	}
//	defer server.Close()
//
//	alerts, err := server.Call("get_alerts", map[string]any{"state": "CA"})
//
// All communication with the subprocess runs on a single background worker;
// any number of goroutines may call into the same Server concurrently.
package mcp2go
