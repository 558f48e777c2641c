// Package app runs one transfer engine under a lifecycle state machine.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/ports"
)

// ShutdownTimeout is the maximum time Stop waits for the engine to return.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of a pipe.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state. Running may end in
// Stopped directly when the input drains on its own.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateStopped, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// EventEmitter is called when the lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle manages the state machine around one engine run.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	done := make(chan struct{})
	close(done)
	return &Lifecycle{
		state:   StateStopped,
		done:    done,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to a new state, failing when the move is not allowed.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !allowed(prev, next) {
		l.mu.Unlock()
		if prev == StateStopped || prev == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart reports whether Start may be called.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop reports whether Stop may be called.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateRunning || s == StateStarting
}

// Go runs fn in its own goroutine under a context derived from ctx and moves
// to Running. When fn returns, the state becomes Stopped for a nil result or
// a cancellation, and Crashed for any other error. The caller must have
// moved the lifecycle to Starting first.
func (l *Lifecycle) Go(ctx context.Context, fn func(context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.err = nil
	l.mu.Unlock()

	if err := l.TransitionTo(StateRunning, "started"); err != nil {
		cancel()
		close(done)
		return err
	}

	go func() {
		defer close(done)
		defer cancel()
		err := fn(runCtx)
		l.finish(err)
	}()
	return nil
}

func (l *Lifecycle) finish(err error) {
	reason := "input drained"
	switch {
	case errors.Is(err, context.Canceled):
		reason = "context canceled"
		err = nil
	case errors.Is(err, context.DeadlineExceeded):
		reason = "context deadline exceeded"
		err = nil
	}

	l.mu.Lock()
	l.err = err
	l.mu.Unlock()

	if err != nil {
		l.logger.Error("pipe crashed", ports.Err(err))
		_ = l.TransitionTo(StateCrashed, err.Error())
		return
	}
	if l.State() == StateStopping {
		_ = l.TransitionTo(StateStopped, "stopped")
		return
	}
	_ = l.TransitionTo(StateStopped, reason)
}

// Stop cancels the run and waits up to timeout for it to return.
func (l *Lifecycle) Stop(timeout time.Duration) error {
	if err := l.TransitionTo(StateStopping, "stop requested"); err != nil {
		return domain.ErrNotRunning
	}

	l.mu.RLock()
	cancel, done := l.cancel, l.done
	l.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}

// Done is closed when the current run returns.
func (l *Lifecycle) Done() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}

// Err returns the error the last run ended with, nil after a clean end.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}
