package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessagesCarryContext(t *testing.T) {
	assert.Contains(t, (&ConnectionError{Command: "npx server", Cause: stderrors.New("boom")}).Error(), "npx server")
	assert.Contains(t, (&WorkerStartError{Reason: "worker already shut down"}).Error(), "already shut down")
	assert.Contains(t, (&WorkerShutdownError{Op: "echoMessage"}).Error(), "echoMessage")
	assert.Equal(t, "worker is shut down", (&WorkerShutdownError{}).Error())
	assert.Contains(t, (&CallTimeoutError{Op: "slow", Elapsed: 10 * time.Millisecond}).Error(), "10ms")
	assert.Contains(t, (&TransportError{Op: "tools/call", Cause: stderrors.New("pipe closed")}).Error(), "pipe closed")
	assert.Contains(t, (&OperationFailedError{Op: "add", Message: "division by zero"}).Error(), "division by zero")
	assert.Contains(t, (&OperationExecutionError{Op: "add", Cause: stderrors.New("oops")}).Error(), "oops")
	assert.Contains(t, (&NameCollisionError{Normalized: "echo_message", First: "echoMessage", Second: "echo_message"}).Error(), "echo_message")
	assert.Contains(t, (&ResultUnwrapError{Op: "snap", ContentType: "image"}).Error(), "image")
	assert.Equal(t, "session is closed", (&SessionClosedError{}).Error())
}

func TestUnknownOperationErrorListsKnownSorted(t *testing.T) {
	err := &UnknownOperationError{Name: "frobnicate", Known: []string{"echo_message", "add"}}
	assert.Contains(t, err.Error(), `"frobnicate"`)
	assert.Contains(t, err.Error(), "add, echo_message")
}

func TestUnknownArgumentErrorListsParameters(t *testing.T) {
	err := &UnknownArgumentError{Op: "echoMessage", Param: "volume", Known: []string{"message"}}
	assert.Contains(t, err.Error(), `"volume"`)
	assert.Contains(t, err.Error(), "message")
}

func TestArgumentTypeErrorMessages(t *testing.T) {
	missing := &ArgumentTypeError{Op: "echoMessage", Param: "message", Want: "string", Missing: true}
	assert.Contains(t, missing.Error(), "requires parameter")
	assert.Contains(t, missing.Error(), `"message"`)

	mismatch := &ArgumentTypeError{Op: "echoMessage", Param: "message", Want: "string", Got: "int"}
	assert.Contains(t, mismatch.Error(), "must be string, got int")
}

func TestErrorsAsThroughWrapChains(t *testing.T) {
	cause := &OperationFailedError{Op: "add", Message: "nope"}
	wrapped := &OperationExecutionError{Op: "add", Cause: cause}

	var failed *OperationFailedError
	require.True(t, stderrors.As(wrapped, &failed))
	assert.Equal(t, "nope", failed.Message)

	transport := &TransportError{Op: "tools/call", Cause: stderrors.New("pipe closed")}
	outer := Wrapf(transport, "calling add")
	var te *TransportError
	require.True(t, stderrors.As(outer, &te))
	assert.Equal(t, "tools/call", te.Op)
}

func TestWrapfRecordsCallSite(t *testing.T) {
	err := Wrapf(stderrors.New("inner"), "context %d", 7)
	assert.Contains(t, err.Error(), "context 7")
	assert.Contains(t, err.Error(), "inner")
	assert.Contains(t, err.Error(), "kinds_test.go")
}
