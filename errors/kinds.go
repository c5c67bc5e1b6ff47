// Package errors defines the module's error taxonomy as typed, matchable
// values, plus small helpers for building call-site annotated errors.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// New builds an ad-hoc error prefixed with the caller's file and line.
func New(format string, a ...any) error {
	return fmt.Errorf("[%s] %s", callSite(), fmt.Sprintf(format, a...))
}

// Wrapf annotates err with context and the caller's file and line, keeping
// err matchable through the chain. A nil err stays nil.
func Wrapf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callSite(), fmt.Sprintf(format, a...), err)
}

func callSite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// ConnectionError indicates the server subprocess could not be launched or
// the protocol handshake failed. The session may retry on the next access.
type ConnectionError struct {
	Command string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to MCP server %q: %v", e.Command, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// WorkerStartError indicates the background worker could not be started.
type WorkerStartError struct {
	Reason string
}

func (e *WorkerStartError) Error() string {
	return fmt.Sprintf("cannot start worker: %s", e.Reason)
}

// WorkerShutdownError is delivered to calls that were still pending when the
// worker was torn down, and to submissions made after shutdown.
type WorkerShutdownError struct {
	Op string
}

func (e *WorkerShutdownError) Error() string {
	if e.Op == "" {
		return "worker is shut down"
	}
	return fmt.Sprintf("worker shut down before %q completed", e.Op)
}

// CallTimeoutError indicates the caller's wait elapsed. The remote call is
// not aborted; its late result will be discarded.
type CallTimeoutError struct {
	Op      string
	Elapsed time.Duration
}

func (e *CallTimeoutError) Error() string {
	return fmt.Sprintf("call to %q timed out after %v", e.Op, e.Elapsed)
}

// TransportError indicates the channel to the subprocess broke. The session
// is closed once a transport error surfaces.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %q: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// OperationFailedError carries a failure the remote operation itself
// declared. The session stays open; the caller may retry.
type OperationFailedError struct {
	Op      string
	Message string
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation %q failed: %s", e.Op, e.Message)
}

// OperationExecutionError wraps a failure raised by a unit of work executed
// on the worker, identifying the operation that produced it.
type OperationExecutionError struct {
	Op    string
	Cause error
}

func (e *OperationExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.Op, e.Cause)
}

func (e *OperationExecutionError) Unwrap() error { return e.Cause }

// UnknownOperationError is returned when a lookup matches no binding. Known
// enumerates the operations the session currently exposes.
type UnknownOperationError struct {
	Name  string
	Known []string
}

func (e *UnknownOperationError) Error() string {
	known := append([]string(nil), e.Known...)
	sort.Strings(known)
	return fmt.Sprintf("operation %q not found. Available operations: %s",
		e.Name, strings.Join(known, ", "))
}

// UnknownArgumentError rejects an argument the operation's schema does not
// declare.
type UnknownArgumentError struct {
	Op    string
	Param string
	Known []string
}

func (e *UnknownArgumentError) Error() string {
	known := append([]string(nil), e.Known...)
	sort.Strings(known)
	return fmt.Sprintf("operation %q has no parameter %q (parameters: %s)",
		e.Op, e.Param, strings.Join(known, ", "))
}

// ArgumentTypeError rejects an argument whose value does not match the
// schema-declared type, or a required argument that was not supplied.
type ArgumentTypeError struct {
	Op      string
	Param   string
	Want    string
	Got     string
	Missing bool
}

func (e *ArgumentTypeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("operation %q requires parameter %q (%s)", e.Op, e.Param, e.Want)
	}
	return fmt.Sprintf("operation %q parameter %q must be %s, got %s", e.Op, e.Param, e.Want, e.Got)
}

// NameCollisionError indicates two operation names normalize to the same
// identifier. Binding is all-or-nothing, so no bindings are produced.
type NameCollisionError struct {
	Normalized string
	First      string
	Second     string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("operations %q and %q both normalize to %q", e.First, e.Second, e.Normalized)
}

// ResultUnwrapError indicates the remote result envelope held content the
// unwrapper does not recognize.
type ResultUnwrapError struct {
	Op          string
	ContentType string
}

func (e *ResultUnwrapError) Error() string {
	return fmt.Sprintf("operation %q returned unrecognized content type %q", e.Op, e.ContentType)
}

// SessionClosedError rejects any use of a facade after Close.
type SessionClosedError struct{}

func (e *SessionClosedError) Error() string { return "session is closed" }
