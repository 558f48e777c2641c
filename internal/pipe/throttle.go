package pipe

import "time"

// throttle bounds the average transfer rate of one batch attempt. Writes are
// cut into chunks of rate*interval bytes and the sender holds off while the
// bytes written exceed what the rate allows for the elapsed time, so the
// total never runs ahead of the rate by more than one chunk.
type throttle struct {
	rate     int64
	interval time.Duration
	start    time.Time
	sent     int64
	started  bool
}

func newThrottle(rate int, interval time.Duration) *throttle {
	return &throttle{rate: int64(rate), interval: interval}
}

// chunk returns the largest write allowed at once, or -1 when unlimited.
func (t *throttle) chunk() int {
	if t.rate <= 0 {
		return -1
	}
	n := t.rate * int64(t.interval) / int64(time.Second)
	if n < 1 {
		n = 1
	}
	return int(n)
}

// holdoff returns how long the sender must wait before its next write.
func (t *throttle) holdoff(now time.Time) time.Duration {
	if t.rate <= 0 || !t.started {
		return 0
	}
	due := time.Duration(t.sent * int64(time.Second) / t.rate)
	if wait := due - now.Sub(t.start); wait > 0 {
		return wait
	}
	return 0
}

// record accounts n bytes written at now. The first write of an attempt
// starts the measurement window.
func (t *throttle) record(now time.Time, n int) {
	if !t.started {
		t.start = now
		t.started = true
	}
	t.sent += int64(n)
}

// reset restarts the measurement window for the next attempt.
func (t *throttle) reset() {
	t.sent = 0
	t.started = false
}
