package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/pipeship/internal/adapters/log"
	"github.com/bft-labs/pipeship/internal/domain"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func newTestLifecycle(emitter EventEmitter) *Lifecycle {
	return NewLifecycle(log.NewNoopLogger(), emitter)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to starting", StateStopped, StateStarting, nil},
		{"starting to running", StateStarting, StateRunning, nil},
		{"starting to stopping", StateStarting, StateStopping, nil},
		{"starting to crashed", StateStarting, StateCrashed, nil},
		{"running to stopping", StateRunning, StateStopping, nil},
		{"running to stopped on drain", StateRunning, StateStopped, nil},
		{"running to crashed", StateRunning, StateCrashed, nil},
		{"stopping to stopped", StateStopping, StateStopped, nil},
		{"stopping to crashed", StateStopping, StateCrashed, nil},
		{"crashed to starting", StateCrashed, StateStarting, nil},

		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"starting to stopped", StateStarting, StateStopped, domain.ErrAlreadyRunning},
		{"running to starting", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"stopping to running", StateStopping, StateRunning, domain.ErrAlreadyRunning},
		{"crashed to stopped", StateCrashed, StateStopped, domain.ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			if err != tt.wantErr {
				t.Fatalf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}

			want := tt.to
			if err != nil {
				want = tt.from
			}
			if l.State() != want {
				t.Errorf("state = %v, want %v", l.State(), want)
			}
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := newTestLifecycle(emitter)

	_ = l.TransitionTo(StateStarting, "start test")
	_ = l.TransitionTo(StateRunning, "running test")
	_ = l.TransitionTo(StateStarting, "rejected")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].previous != StateStopped || events[0].current != StateStarting {
		t.Errorf("event 0: got %v->%v, want Stopped->Starting", events[0].previous, events[0].current)
	}
	if events[1].reason != "running test" {
		t.Errorf("event 1 reason = %q", events[1].reason)
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state     State
		wantStart bool
		wantStop  bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateStopping, false, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.state

			if got := l.CanStart(); got != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.wantStart)
			}
			if got := l.CanStop(); got != tt.wantStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func start(t *testing.T, l *Lifecycle, fn func(context.Context) error) {
	t.Helper()
	if err := l.TransitionTo(StateStarting, "test"); err != nil {
		t.Fatalf("TransitionTo(Starting) = %v", err)
	}
	if err := l.Go(context.Background(), fn); err != nil {
		t.Fatalf("Go() = %v", err)
	}
}

func waitDone(t *testing.T, l *Lifecycle) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("run did not finish")
	}
}

func TestLifecycle_Go_Drained(t *testing.T) {
	l := newTestLifecycle(nil)
	start(t, l, func(context.Context) error { return nil })
	waitDone(t, l)

	if l.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v, want nil", l.Err())
	}
}

func TestLifecycle_Go_DeadlineIsCleanStop(t *testing.T) {
	emitter := &mockEmitter{}
	l := newTestLifecycle(emitter)
	if err := l.TransitionTo(StateStarting, "test"); err != nil {
		t.Fatalf("TransitionTo(Starting) = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Go() = %v", err)
	}
	waitDone(t, l)

	if l.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v, want nil", l.Err())
	}
	events := emitter.Events()
	if last := events[len(events)-1]; last.reason != "context deadline exceeded" {
		t.Errorf("last reason = %q, want context deadline exceeded", last.reason)
	}
}

func TestLifecycle_Go_Crashed(t *testing.T) {
	l := newTestLifecycle(nil)
	start(t, l, func(context.Context) error { return domain.ErrRetryExhausted })
	waitDone(t, l)

	if !errors.Is(l.Err(), domain.ErrRetryExhausted) {
		t.Errorf("Err() = %v, want ErrRetryExhausted", l.Err())
	}
	if l.State() != StateCrashed {
		t.Errorf("state = %v, want Crashed", l.State())
	}
	if !l.CanStart() {
		t.Error("a crashed lifecycle can start again")
	}
}

func TestLifecycle_Stop(t *testing.T) {
	emitter := &mockEmitter{}
	l := newTestLifecycle(emitter)
	start(t, l, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := l.Stop(time.Second); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if l.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v, want nil after cancellation", l.Err())
	}

	var got []State
	for _, e := range emitter.Events() {
		got = append(got, e.current)
	}
	want := []State{StateStarting, StateRunning, StateStopping, StateStopped}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}

	if err := l.Stop(time.Second); err != domain.ErrNotRunning {
		t.Errorf("second Stop() = %v, want ErrNotRunning", err)
	}
}

func TestLifecycle_Stop_Timeout(t *testing.T) {
	l := newTestLifecycle(nil)
	release := make(chan struct{})
	start(t, l, func(context.Context) error {
		<-release
		return nil
	})

	if err := l.Stop(10 * time.Millisecond); err != domain.ErrShutdownTimeout {
		t.Errorf("Stop() = %v, want ErrShutdownTimeout", err)
	}
	close(release)
	waitDone(t, l)
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := newTestLifecycle(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.CanStart()
				_ = l.CanStop()
				_ = l.Err()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.TransitionTo(StateStarting, "test")
			_ = l.TransitionTo(StateRunning, "test")
		}()
	}
	wg.Wait()
}
