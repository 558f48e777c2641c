// Package pipe implements the transfer engine: a single-goroutine event loop
// that collects bytes from an input descriptor, cuts them into batches and
// posts every batch to an HTTP endpoint over one non-blocking connection.
//
// A batch that fails at any point is rolled back and retransmitted in full,
// with the same head, once a new connection is up. Delivery is therefore
// at least once: receivers must tolerate duplicate batches.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/pipeship/internal/adapters/log"
	"github.com/bft-labs/pipeship/internal/adapters/netio"
	"github.com/bft-labs/pipeship/internal/buffer"
	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/ports"
)

// EventEmitter receives batch outcomes.
type EventEmitter interface {
	OnBatchSent(bytes int, compressed bool, duration time.Duration)
	OnSendError(err error, attempt int)
}

type flow int

const (
	flowRequest flow = iota
	flowResponse
)

type phase int

const (
	phaseHead phase = iota
	phaseBody
)

// conn is the connection the engine writes batches to.
type conn interface {
	Fd() int
	Read(p []byte) (int, error)
	Writev(bufs ...[]byte) (int, error)
	Err() error
	Close() error
}

// Pipe is one transfer engine instance. It is not safe for concurrent use;
// Run owns every buffer, cursor and the connection.
type Pipe struct {
	cfg     Config
	input   int
	ep      domain.Endpoint
	header  ports.HeaderGenerator
	logger  ports.Logger
	emitter EventEmitter

	dial func() (conn, error)
	now  func() time.Time

	in       *buffer.Staging
	out      *buffer.Staging
	zip      *compressor
	throttle *throttle
	backoff  *backoff
	resp     *responseHead
	discard  []byte

	// batch in flight
	active      bool
	originalLen int
	compressed  bool
	head        []byte
	headSent    int
	started     time.Time

	flow      flow
	reqPhase  phase
	respPhase phase
	remaining int

	c            conn
	connecting   bool
	persistent   bool
	nextDial     time.Time
	lastProgress time.Time

	inputClosed bool
	idle        int
	retry       int
}

// New creates an engine reading from the input descriptor and posting to ep.
// The endpoint host is resolved once, here.
func New(cfg Config, input int, ep domain.Endpoint, header ports.HeaderGenerator, logger ports.Logger, emitter EventEmitter) (*Pipe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("%w: missing header generator", domain.ErrInvalidConfig)
	}
	if ep.Scheme != "http" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedScheme, ep.Scheme)
	}

	addrs, err := netio.Resolve(context.Background(), ep.Host, ep.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", domain.ErrInvalidConfig, ep.Host, err)
	}

	p := newPipe(cfg, input, ep, header, logger, emitter)
	p.dial = func() (conn, error) {
		return netio.Dial(addrs)
	}
	return p, nil
}

func newPipe(cfg Config, input int, ep domain.Endpoint, header ports.HeaderGenerator, logger ports.Logger, emitter EventEmitter) *Pipe {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}

	size := cfg.BufferSize
	if cfg.ZipLevel > 0 {
		size = zlibBound(cfg.BufferSize)
	}

	p := &Pipe{
		cfg:      cfg,
		input:    input,
		ep:       ep,
		header:   header,
		logger:   logger,
		emitter:  emitter,
		now:      time.Now,
		in:       buffer.NewSized(cfg.BufferSize, size),
		out:      buffer.NewSized(size, size),
		throttle: newThrottle(cfg.Rate, cfg.ThrottleInterval),
		backoff:  newBackoff(cfg.BackoffInitial, cfg.BackoffMax),
		resp:     newResponseHead(ResponseHeadLimit),
		discard:  make([]byte, 512),
	}
	if cfg.ZipLevel > 0 {
		p.zip = newCompressor(cfg.ZipLevel, size)
	}

	header.SetRequest("POST", ep.Path, "HTTP/1.1")
	header.SetField("Host", ep.HostPort())
	return p
}

// Run moves bytes from the input to the endpoint until the input ends and
// every batch is acknowledged (nil), the retry budget is spent
// (domain.ErrRetryExhausted), the input fails (domain.ErrInputFatal), or ctx
// is done (ctx.Err()). A batch in flight at cancellation is left as is and
// is retransmitted if Run is called again.
func (p *Pipe) Run(ctx context.Context) error {
	wasNonblock, err := netio.IsNonblock(p.input)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInputFatal, err)
	}
	if !wasNonblock {
		if err := netio.SetNonblock(p.input, true); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInputFatal, err)
		}
		defer netio.SetNonblock(p.input, false)
	}
	defer p.release()

	// A restarted run resumes any batch in flight with a fresh retry budget.
	p.retry = 0
	p.backoff.Reset()
	p.nextDial = time.Time{}

	p.logger.Debug("pipe started",
		ports.String("destination", p.ep.String()),
		ports.Int("buffer_size", p.cfg.BufferSize),
		ports.Int("rate", p.cfg.Rate),
		ports.Int("zip_level", p.cfg.ZipLevel),
	)

	fds := make([]netio.PollFd, 2)
	deadline := p.now().Add(p.cfg.IdleInterval)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.cfg.ConnectRetry > 0 && p.retry >= p.cfg.ConnectRetry {
			p.logger.Error("connect retry exhausted",
				ports.Int("retry", p.retry),
				ports.String("destination", p.ep.String()),
			)
			return domain.ErrRetryExhausted
		}

		d, flush := schedule(p.schedState())
		if d == decideStop {
			p.logger.Debug("input drained, pipe stopped")
			return nil
		}
		if flush {
			p.flush()
		}
		if d == decideReady {
			p.ensureConnection()
		}

		now := p.now()
		hold := p.holdoff(now)
		p.pollSet(fds, hold)

		n, err := netio.Poll(fds, p.wait(now, deadline, hold))
		if err != nil {
			return fmt.Errorf("pipe: poll: %w", err)
		}

		// Idle ticks run on a fixed cadence whether or not input arrived.
		now = p.now()
		if !now.Before(deadline) {
			p.idleTick()
			deadline = deadline.Add(p.cfg.IdleInterval)
			if !deadline.After(now) {
				deadline = now.Add(p.cfg.IdleInterval)
			}
		}
		if n > 0 {
			p.dispatchConn(fds[1].Revents)
			if err := p.dispatchInput(fds[0].Revents); err != nil {
				return err
			}
		}
		p.checkStall(p.now())
	}
}

func (p *Pipe) schedState() schedState {
	return schedState{
		inputClosed: p.inputClosed,
		pending:     p.in.Filled(),
		full:        p.in.Full(),
		active:      p.active,
		awaiting:    p.flow == flowResponse,
		idle:        p.idle,
		idleLimit:   p.cfg.IdleLimit,
	}
}

// flush turns the pending input into the next batch.
func (p *Pipe) flush() {
	p.in.Swap(p.out)
	p.in.Reset()

	p.active = true
	p.originalLen = p.out.Filled()
	p.compressed = false
	p.head = p.head[:0]
	p.headSent = 0
	p.idle = 0
	p.started = p.now()
	p.lastProgress = p.started
	p.throttle.reset()

	p.logger.Debug("batch flushed", ports.Int("bytes", p.originalLen))
}

func (p *Pipe) idleTick() {
	if p.in.Filled() > 0 {
		p.idle++
		p.logger.Debug("idle tick",
			ports.Int("idle", p.idle),
			ports.Int("pending", p.in.Filled()),
		)
	}
}

func (p *Pipe) holdoff(now time.Time) time.Duration {
	if !p.active || p.flow != flowRequest {
		return 0
	}
	return p.throttle.holdoff(now)
}

func (p *Pipe) pollSet(fds []netio.PollFd, hold time.Duration) {
	fds[0] = netio.PollFd{Fd: -1}
	if !p.inputClosed {
		fds[0] = netio.PollFd{Fd: int32(p.input), Events: netio.EventIn}
	}

	fds[1] = netio.PollFd{Fd: -1}
	if p.c == nil {
		return
	}
	fds[1].Fd = int32(p.c.Fd())
	switch {
	case p.connecting:
		fds[1].Events = netio.EventOut
	case p.active && p.flow == flowRequest:
		if hold == 0 {
			fds[1].Events = netio.EventOut
		}
	default:
		fds[1].Events = netio.EventIn
	}
}

// wait returns the readiness wait bound for this iteration.
func (p *Pipe) wait(now, deadline time.Time, hold time.Duration) time.Duration {
	wait := maxWait
	bound := func(d time.Duration) {
		if d < wait {
			wait = d
		}
	}

	bound(deadline.Sub(now))
	if hold > 0 {
		bound(hold)
	}
	if p.active && p.c != nil {
		bound(p.lastProgress.Add(p.cfg.IdleInterval).Sub(now))
	}
	if p.active && p.c == nil {
		bound(p.nextDial.Sub(now))
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (p *Pipe) dispatchConn(rev int16) {
	if p.c == nil || rev == 0 {
		return
	}

	switch {
	case rev&(netio.EventErr|netio.EventNval) != 0,
		rev&netio.EventHup != 0 && rev&netio.EventIn == 0:
		p.handleSocketError()
	case p.connecting:
		if rev&netio.EventOut != 0 {
			p.finishConnect()
		}
	case p.active && p.flow == flowRequest:
		if rev&netio.EventOut != 0 {
			p.sendRequest()
		}
	case p.active && p.flow == flowResponse:
		if rev&(netio.EventIn|netio.EventHup) != 0 {
			p.readResponse()
		}
	default:
		if rev&(netio.EventIn|netio.EventHup) != 0 {
			p.drainIdle()
		}
	}
}

// checkStall fails the attempt when a batch made no progress for a whole
// idle interval. Time spent in a throttle hold-off does not count.
func (p *Pipe) checkStall(now time.Time) {
	if !p.active || p.c == nil {
		return
	}
	if hold := p.holdoff(now); hold > 0 {
		if end := now.Add(hold); end.After(p.lastProgress) {
			p.lastProgress = end
		}
		return
	}
	if now.Sub(p.lastProgress) >= p.cfg.IdleInterval {
		p.fail("peer stalled", nil)
	}
}

// Retry returns the number of consecutive failed attempts.
func (p *Pipe) Retry() int { return p.retry }

func errno(err error) string {
	var e unix.Errno
	if errors.As(err, &e) {
		return strconv.Itoa(int(e))
	}
	return ""
}

type nopEmitter struct{}

func (nopEmitter) OnBatchSent(int, bool, time.Duration) {}
func (nopEmitter) OnSendError(error, int)               {}
