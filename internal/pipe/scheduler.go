package pipe

// decision is the outcome of one scheduler evaluation.
type decision int

const (
	decideWait decision = iota
	decideReady
	decideStop
)

func (d decision) String() string {
	switch d {
	case decideWait:
		return "wait"
	case decideReady:
		return "ready"
	case decideStop:
		return "stop"
	default:
		return "unknown"
	}
}

// schedState is the engine state the scheduler looks at.
type schedState struct {
	inputClosed bool
	pending     int  // unflushed input bytes
	full        bool // input buffer reached capacity
	active      bool // a batch is in flight
	awaiting    bool // flow is response
	idle        int
	idleLimit   int
}

// schedule decides whether the loop stops, waits, or sends, and whether the
// pending input must be flushed into a new batch first.
func schedule(s schedState) (decision, bool) {
	switch {
	case s.inputClosed && s.pending == 0 && !s.active && !s.awaiting:
		return decideStop, false
	case s.awaiting:
		return decideWait, false
	case s.active:
		return decideReady, false
	case s.full:
		return decideReady, true
	case s.pending > 0 && (s.idle >= s.idleLimit || s.inputClosed):
		return decideReady, true
	}
	return decideWait, false
}
