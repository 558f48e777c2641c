package pipe

import (
	"bytes"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/header"
	"github.com/bft-labs/pipeship/internal/ports"
)

// fakeConn records writes and serves scripted reads.
type fakeConn struct {
	written  bytes.Buffer
	writes   int
	maxWrite int
	writeErr error
	resp     []byte
	readErr  error
	sockErr  error
	closed   bool
}

func (c *fakeConn) Fd() int { return 1000 }

func (c *fakeConn) Writev(bufs ...[]byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes++
	n := 0
write:
	for _, b := range bufs {
		for _, x := range b {
			if c.maxWrite > 0 && n >= c.maxWrite {
				break write
			}
			c.written.WriteByte(x)
			n++
		}
	}
	return n, nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if len(c.resp) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, unix.EAGAIN
	}
	n := copy(p, c.resp)
	c.resp = c.resp[n:]
	return n, nil
}

func (c *fakeConn) Err() error   { return c.sockErr }
func (c *fakeConn) Close() error { c.closed = true; return nil }

// clock is a manual time source.
type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1700000000, 0)} }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// countingHeader counts generated heads.
type countingHeader struct {
	*header.Post
	generated int
}

func (h *countingHeader) Generate(n int) []byte {
	h.generated++
	return h.Post.Generate(n)
}

func newCountingHeader() *countingHeader {
	id := 0
	return &countingHeader{Post: header.NewPost(header.WithIDFunc(func() string {
		id++
		return "batch-" + string(rune('0'+id))
	}))}
}

type logEntry struct {
	level string
	msg   string
}

// recordLogger keeps every entry.
type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *recordLogger) Debug(msg string, _ ...ports.Field) { l.add("debug", msg) }
func (l *recordLogger) Info(msg string, _ ...ports.Field)  { l.add("info", msg) }
func (l *recordLogger) Warn(msg string, _ ...ports.Field)  { l.add("warn", msg) }
func (l *recordLogger) Error(msg string, _ ...ports.Field) { l.add("error", msg) }

func (l *recordLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// recordEmitter keeps batch outcomes.
type recordEmitter struct {
	mu     sync.Mutex
	sent   []int
	errors []error
}

func (e *recordEmitter) OnBatchSent(bytes int, _ bool, _ time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, bytes)
}

func (e *recordEmitter) OnSendError(err error, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, err)
}

func (e *recordEmitter) errorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errors)
}

type fixture struct {
	p       *Pipe
	clock   *clock
	hdr     *countingHeader
	logger  *recordLogger
	emitter *recordEmitter
	conns   []*fakeConn
	dialErr error
}

// newFixture builds an engine over fake connections and a manual clock.
func newFixture(cfg Config) *fixture {
	f := &fixture{
		clock:   newClock(),
		hdr:     newCountingHeader(),
		logger:  &recordLogger{},
		emitter: &recordEmitter{},
	}
	ep := domain.Endpoint{Scheme: "http", Host: "collector", Port: "8080", Path: "/ingest"}
	f.p = newPipe(cfg, -1, ep, f.hdr, f.logger, f.emitter)
	f.p.now = f.clock.now
	f.p.dial = func() (conn, error) {
		if f.dialErr != nil {
			return nil, f.dialErr
		}
		c := &fakeConn{}
		f.conns = append(f.conns, c)
		return c, nil
	}
	return f
}

func (f *fixture) lastConn() *fakeConn { return f.conns[len(f.conns)-1] }

// load puts payload into the input buffer and flushes it into a batch.
func (f *fixture) load(payload string) {
	f.p.in.Write([]byte(payload))
	f.p.flush()
}

// connect dials and completes the connect, which sends what it can.
func (f *fixture) connect() *fakeConn {
	f.p.ensureConnection()
	c := f.lastConn()
	f.p.finishConnect()
	return c
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BufferSize = 1024
	cfg.Rate = 0
	cfg.IdleInterval = time.Second
	return cfg
}
