// Package runner provides the single serialized execution context that all
// remote calls funnel through. The MCP channel is not safe for uncoordinated
// concurrent use, so one long-lived worker goroutine owns it and any number
// of caller goroutines submit work and block on their own call's result.
package runner

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mcp2go/mcp2go/errors"
	"github.com/mcp2go/mcp2go/log"
)

// DefaultTimeout bounds a call's wait when the caller does not supply one.
const DefaultTimeout = 30 * time.Second

// queueDepth bounds how many submitted calls may sit waiting for the worker.
// Submission blocks once the queue is full, which keeps queuing overhead
// bounded without dropping work.
const queueDepth = 64

// Task is a unit of asynchronous work executed on the worker goroutine. The
// context is the worker's own and is cancelled on a non-draining shutdown.
type Task func(ctx context.Context) (any, error)

// PendingCall correlates one submitted task with its eventual single result.
// Exactly one producer (the worker) fills it and exactly one consumer (the
// submitting caller) observes it.
type PendingCall struct {
	id   uuid.UUID
	op   string
	task Task

	done      chan struct{}
	value     any
	err       error
	abandoned atomic.Bool
}

// ID returns the call's unique identity. Late-result discarding is keyed by
// this identity, never by operation name.
func (c *PendingCall) ID() uuid.UUID { return c.id }

// Op returns the operation identifier the call targets.
func (c *PendingCall) Op() string { return c.op }

func (c *PendingCall) fulfill(logger *slog.Logger, value any, err error) {
	if c.abandoned.Load() {
		logger.Debug("discarding result of abandoned call", "op", c.op, "call_id", c.id)
		return
	}
	c.value = value
	c.err = err
	close(c.done)
}

// Worker owns the background execution goroutine. Start it once, submit from
// any goroutine, shut it down once.
type Worker struct {
	mu      sync.Mutex
	started bool
	closed  bool

	queue    chan *PendingCall
	ctx      context.Context
	cancel   context.CancelFunc
	quit     chan struct{}
	loopDone chan struct{}

	logger *slog.Logger
}

// NewWorker returns a worker that has not been started.
func NewWorker() *Worker {
	return &Worker{logger: log.WithComponent("runner")}
}

// Start brings up the worker goroutine. It is idempotent; starting a worker
// that has already been shut down fails with WorkerStartError.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return &errors.WorkerStartError{Reason: "worker already shut down"}
	}
	if w.started {
		return nil
	}
	w.queue = make(chan *PendingCall, queueDepth)
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.quit = make(chan struct{})
	w.loopDone = make(chan struct{})
	w.started = true
	go w.loop()
	w.logger.Debug("worker started")
	return nil
}

func (w *Worker) loop() {
	defer close(w.loopDone)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.quit:
			// Draining shutdown: finish everything already queued.
			for {
				select {
				case call := <-w.queue:
					w.execute(call)
				default:
					return
				}
			}
		case call := <-w.queue:
			w.execute(call)
		}
	}
}

func (w *Worker) execute(call *PendingCall) {
	if w.ctx.Err() != nil {
		call.fulfill(w.logger, nil, &errors.WorkerShutdownError{Op: call.op})
		return
	}
	value, err := call.task(w.ctx)
	call.fulfill(w.logger, value, err)
}

// Submit enqueues a task for execution on the worker goroutine and returns
// immediately with the call handle. Tasks are started in submission order.
func (w *Worker) Submit(op string, task Task) (*PendingCall, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, &errors.WorkerShutdownError{Op: op}
	}
	if !w.started {
		return nil, &errors.WorkerStartError{Reason: "worker not started"}
	}

	call := &PendingCall{
		id:   uuid.New(),
		op:   op,
		task: task,
		done: make(chan struct{}),
	}
	// The lock is held across the enqueue so that shutdown observes either
	// a queued call (which it will drain or fail) or a rejected submit,
	// never a call in limbo. The worker keeps consuming, so a full queue
	// only stalls submitters briefly.
	select {
	case w.queue <- call:
		return call, nil
	case <-w.ctx.Done():
		return nil, &errors.WorkerShutdownError{Op: op}
	}
}

// Await blocks until the call's result slot is filled or the timeout
// elapses. On timeout the call is marked abandoned so a late result is
// discarded; the task itself is not interrupted. A non-positive timeout
// waits indefinitely.
func (w *Worker) Await(call *PendingCall, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		<-call.done
		return call.value, call.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-call.done:
		return call.value, call.err
	case <-timer.C:
		call.abandoned.Store(true)
		return nil, &errors.CallTimeoutError{Op: call.op, Elapsed: timeout}
	}
}

// Shutdown stops accepting submissions. With drain it waits for every
// already-submitted call to finish; without it the worker context is
// cancelled and still-pending calls fail with WorkerShutdownError.
// Idempotent.
func (w *Worker) Shutdown(drain bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}

	if drain {
		close(w.quit)
	} else {
		w.cancel()
	}
	<-w.loopDone

	// Fail whatever the loop left behind (non-drain, or racing submits).
	for {
		select {
		case call := <-w.queue:
			call.fulfill(w.logger, nil, &errors.WorkerShutdownError{Op: call.op})
		default:
			w.cancel()
			w.logger.Debug("worker stopped", "drained", drain)
			return
		}
	}
}

// Gateway is the synchronous entry point callers use to run work on a
// Worker. It is safe for concurrent use from any number of goroutines.
type Gateway struct {
	worker  *Worker
	timeout time.Duration
}

// NewGateway wraps a worker with a default per-call timeout. A non-positive
// defaultTimeout selects DefaultTimeout.
func NewGateway(w *Worker, defaultTimeout time.Duration) *Gateway {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Gateway{worker: w, timeout: defaultTimeout}
}

// Run executes task on the worker and blocks until its result arrives or
// the gateway's default timeout elapses.
func (g *Gateway) Run(op string, task Task) (any, error) {
	return g.RunTimeout(op, task, g.timeout)
}

// RunTimeout is Run with an explicit timeout bound.
func (g *Gateway) RunTimeout(op string, task Task, timeout time.Duration) (any, error) {
	call, err := g.worker.Submit(op, task)
	if err != nil {
		return nil, err
	}
	value, err := g.worker.Await(call, timeout)
	if err == nil {
		return value, nil
	}
	var timeoutErr *errors.CallTimeoutError
	var shutdownErr *errors.WorkerShutdownError
	if stderrors.As(err, &timeoutErr) || stderrors.As(err, &shutdownErr) {
		return nil, err
	}
	return nil, &errors.OperationExecutionError{Op: op, Cause: err}
}
