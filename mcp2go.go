package mcp2go

import (
	"context"
	stderrors "errors"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mcp2go/mcp2go/binder"
	"github.com/mcp2go/mcp2go/channel"
	"github.com/mcp2go/mcp2go/config"
	"github.com/mcp2go/mcp2go/errors"
	"github.com/mcp2go/mcp2go/log"
	"github.com/mcp2go/mcp2go/runner"
	"github.com/mcp2go/mcp2go/schema"
	"github.com/mcp2go/mcp2go/stubs"
)

// DefaultConnectTimeout bounds the connect-and-discover sequence.
const DefaultConnectTimeout = 30 * time.Second

// Options configures a Server. The zero value is usable; unset fields fall
// back to the layered config files and then to built-in defaults.
type Options struct {
	// ConnectTimeout bounds subprocess launch, handshake, and discovery.
	ConnectTimeout time.Duration
	// CallTimeout is the default per-call wait bound.
	CallTimeout time.Duration
	// AllowTools, when non-empty, restricts binding to operations whose
	// canonical or normalized name matches one of the glob patterns.
	AllowTools []string
	// GenerateStubs writes a typed Go wrapper for the discovered operations
	// into the stub cache after connecting. Best effort.
	GenerateStubs bool
	// StubDir overrides the stub cache directory.
	StubDir string
	// AutoClose arranges for Close to run when the Server is garbage
	// collected, so a forgotten handle still reaps the subprocess.
	AutoClose bool
	// LogLevel configures the module logger on first Load.
	LogLevel string
}

func (o Options) withConfig(cfg *config.Config) Options {
	if cfg == nil {
		return o
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = cfg.ConnectTimeout.Std()
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = cfg.CallTimeout.Std()
	}
	if o.AllowTools == nil {
		o.AllowTools = cfg.AllowTools
	}
	if !o.GenerateStubs {
		o.GenerateStubs = cfg.StubCache
	}
	if o.StubDir == "" {
		o.StubDir = cfg.StubCacheDir
	}
	if o.LogLevel == "" {
		o.LogLevel = cfg.LogLevel
	}
	return o
}

type sessionState int

const (
	stateUnconnected sessionState = iota
	stateConnecting
	stateReady
	stateClosed
)

// Server is the handle callers hold on one MCP server subprocess. It owns
// its worker, channel, and binding cache exclusively; two Servers never
// share any of them.
type Server struct {
	command []string
	opts    Options

	channel channel.Channel
	worker  *runner.Worker
	gateway *runner.Gateway

	mu          sync.Mutex
	state       sessionState
	connecting  chan struct{}
	bindings    map[string]*binder.Binding
	descriptors []channel.Descriptor

	logger *slog.Logger
}

// Tool is one discovered operation in the shape LLM SDKs expect for
// function calling.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Load prepares a Server for a launch command line. The subprocess is not
// started until the first operation access (or an explicit Connect).
func Load(command string, opts ...Options) (*Server, error) {
	return LoadArgv(schema.ParseCommand(command), opts...)
}

// LoadArgv is Load for a pre-split command.
func LoadArgv(argv []string, opts ...Options) (*Server, error) {
	if len(argv) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if cfg, err := config.Load(); err == nil {
		o = o.withConfig(cfg)
	}
	log.Setup(o.LogLevel)
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}

	s := newServer(argv, o, channel.NewStdio(argv))
	if o.AutoClose {
		runtime.SetFinalizer(s, func(s *Server) { _ = s.Close() })
	}
	return s, nil
}

// newServer wires a facade around an arbitrary channel implementation.
// Tests inject fakes here.
func newServer(argv []string, o Options, ch channel.Channel) *Server {
	worker := runner.NewWorker()
	return &Server{
		command: argv,
		opts:    o,
		channel: ch,
		worker:  worker,
		gateway: runner.NewGateway(worker, o.CallTimeout),
		logger:  log.WithComponent("server"),
	}
}

// Connect forces the lazy connect-and-discover sequence to run now.
// Concurrent callers share a single in-flight attempt; a failed attempt is
// retryable on the next access.
func (s *Server) Connect() error {
	for {
		s.mu.Lock()
		switch s.state {
		case stateClosed:
			s.mu.Unlock()
			return &errors.SessionClosedError{}
		case stateReady:
			s.mu.Unlock()
			return nil
		case stateConnecting:
			wait := s.connecting
			s.mu.Unlock()
			<-wait
			continue
		}

		s.state = stateConnecting
		s.connecting = make(chan struct{})
		wait := s.connecting
		s.mu.Unlock()

		err := s.connect()

		s.mu.Lock()
		if s.state == stateConnecting {
			if err != nil {
				s.state = stateUnconnected
			} else {
				s.state = stateReady
			}
		}
		close(wait)
		s.mu.Unlock()
		return err
	}
}

// connect runs the full startup sequence on the worker: launch, handshake,
// discovery, filtering, and binding.
func (s *Server) connect() error {
	if err := s.worker.Start(); err != nil {
		return err
	}

	task := func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
		if err := s.channel.Connect(ctx); err != nil {
			return nil, err
		}
		return s.channel.ListOperations(ctx)
	}
	value, err := s.gateway.RunTimeout("connect", task, s.opts.ConnectTimeout)
	if err != nil {
		// The gateway's execution wrapper adds nothing for the connect
		// sequence; surface the underlying connection failure directly.
		var execErr *errors.OperationExecutionError
		if stderrors.As(err, &execErr) {
			return execErr.Cause
		}
		return err
	}

	descriptors := filterDescriptors(value.([]channel.Descriptor), s.opts.AllowTools)
	bindings, err := binder.BindAll(descriptors, s.gateway, s.channel)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.descriptors = descriptors
	s.bindings = bindings
	s.mu.Unlock()
	s.logger.Info("session ready", "operations", len(bindings))

	if s.opts.GenerateStubs {
		s.writeStub(descriptors)
	}
	return nil
}

// filterDescriptors applies the allow-list globs against both the canonical
// and the normalized spelling of each operation name.
func filterDescriptors(descriptors []channel.Descriptor, allow []string) []channel.Descriptor {
	if len(allow) == 0 {
		return descriptors
	}
	var kept []channel.Descriptor
	for _, d := range descriptors {
		for _, pattern := range allow {
			okRaw, _ := doublestar.Match(pattern, d.Name)
			okNorm, _ := doublestar.Match(pattern, binder.NormalizeName(d.Name))
			if okRaw || okNorm {
				kept = append(kept, d)
				break
			}
		}
	}
	return kept
}

func (s *Server) writeStub(descriptors []channel.Descriptor) {
	path := ""
	if s.opts.StubDir != "" {
		path = stubs.CachePathIn(s.opts.StubDir, s.command)
	} else {
		var err error
		path, err = stubs.CachePath(s.command)
		if err != nil {
			s.logger.Warn("skipping stub generation", "error", err)
			return
		}
	}
	content := stubs.Generate("stubs", s.command, descriptors)
	if err := stubs.Save(content, path); err != nil {
		s.logger.Warn("failed to write stub", "error", err)
		return
	}
	s.logger.Debug("wrote stub", "path", path)
}

// Lookup resolves an operation by name, connecting first if needed. The
// lookup key is normalized the same way operation names are, so both
// spellings resolve. An unknown name fails with UnknownOperationError
// enumerating the known operations.
func (s *Server) Lookup(name string) (*binder.Binding, error) {
	if err := s.Connect(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil, &errors.SessionClosedError{}
	}
	b, ok := s.bindings[binder.NormalizeName(name)]
	if !ok {
		return nil, &errors.UnknownOperationError{Name: name, Known: s.operationsLocked()}
	}
	return b, nil
}

// Call looks up an operation and invokes it with the given keyword-style
// arguments, returning the unwrapped plain value.
func (s *Server) Call(name string, args map[string]any) (string, error) {
	return s.call(name, args, 0)
}

// CallTimeout is Call with an explicit per-call wait bound.
func (s *Server) CallTimeout(name string, args map[string]any, timeout time.Duration) (string, error) {
	return s.call(name, args, timeout)
}

func (s *Server) call(name string, args map[string]any, timeout time.Duration) (string, error) {
	b, err := s.Lookup(name)
	if err != nil {
		return "", err
	}
	var value string
	if timeout > 0 {
		value, err = b.InvokeTimeout(args, timeout)
	} else {
		value, err = b.Invoke(args)
	}
	if err != nil {
		var transportErr *errors.TransportError
		if stderrors.As(err, &transportErr) {
			s.closeBroken()
		}
		return "", err
	}
	return value, nil
}

// closeBroken tears the session down after a transport failure. Pending
// calls are failed rather than drained; later access gets
// SessionClosedError.
func (s *Server) closeBroken() {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.state = stateClosed
	s.mu.Unlock()
	s.logger.Warn("transport failure, closing session")
	s.worker.Shutdown(false)
	_ = s.channel.Shutdown()
}

// Operations returns the normalized names of the bound operations, sorted.
func (s *Server) Operations() ([]string, error) {
	if err := s.Connect(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operationsLocked(), nil
}

func (s *Server) operationsLocked() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the discovered operations in an SDK-friendly shape for LLM
// function calling, keyed by their canonical names.
func (s *Server) Tools() ([]Tool, error) {
	if err := s.Connect(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tools := make([]Tool, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		tools = append(tools, Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchemaMap(),
		})
	}
	return tools, nil
}

// Close ends the session: in-flight calls drain, the worker stops, and the
// subprocess is terminated. Safe to call multiple times; afterwards any
// operation access fails with SessionClosedError.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	s.mu.Unlock()

	s.worker.Shutdown(true)
	err := s.channel.Shutdown()
	s.logger.Debug("session closed")
	return err
}

// Do runs fn against a ready session and closes it on every path, the
// scoped-acquisition form of holding a Server.
func (s *Server) Do(fn func(*Server) error) error {
	if err := s.Connect(); err != nil {
		_ = s.Close()
		return err
	}
	defer s.Close()
	return fn(s)
}
