package pipeship

import (
	"time"

	"github.com/bft-labs/pipeship/internal/app"
)

// EventHandler receives notifications about pipeship operations.
// Methods are called synchronously from the engine goroutine and should
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBatchSent(event BatchSentEvent)
	OnSendError(event SendErrorEvent)
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchSentEvent describes an acknowledged batch.
type BatchSentEvent struct {
	// Bytes is the batch size before compression.
	Bytes      int
	Compressed bool
	// Duration runs from the flush to the end of the response.
	Duration time.Duration
}

// SendErrorEvent describes a failed transfer attempt. The batch is rolled
// back and retransmitted on the next connection.
type SendErrorEvent struct {
	Error   error
	Attempt int
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnBatchSent(BatchSentEvent)     {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatchSent(bytes int, compressed bool, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchSent(BatchSentEvent{
		Bytes:      bytes,
		Compressed: compressed,
		Duration:   duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, attempt int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{Error: err, Attempt: attempt})
}
