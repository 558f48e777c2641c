package pipeship_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/bft-labs/pipeship/pkg/header"
	"github.com/bft-labs/pipeship/pkg/pipeship"
)

// recordingHandler captures events for assertions.
type recordingHandler struct {
	mu     sync.Mutex
	states []pipeship.StateChangeEvent
	sent   []pipeship.BatchSentEvent
	errs   []pipeship.SendErrorEvent
}

func (h *recordingHandler) OnStateChange(e pipeship.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) OnBatchSent(e pipeship.BatchSentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, e)
}

func (h *recordingHandler) OnSendError(e pipeship.SendErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, e)
}

func (h *recordingHandler) transitions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.states))
	for i, e := range h.states {
		out[i] = e.Previous.String() + "->" + e.Current.String()
	}
	return out
}

// collector is an HTTP endpoint recording every request.
type collector struct {
	mu      sync.Mutex
	bodies  []string
	headers []http.Header
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *collector) snapshot() ([]string, []http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...), append([]http.Header(nil), c.headers...)
}

// trackingPlugin records Initialize and Shutdown calls.
type trackingPlugin struct {
	name    string
	mu      *sync.Mutex
	order   *[]string
	initErr error
	field   string
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg pipeship.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.field != "" {
		cfg.Header.SetField("X-Plugin", p.field)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "init "+p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "shutdown "+p.name)
	return nil
}

func inputPipe(t *testing.T) (int, int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func testConfig(dest string, input int) pipeship.Config {
	cfg := pipeship.DefaultConfig()
	cfg.Destination = dest
	cfg.Input = input
	cfg.Rate = 0
	cfg.IdleLimit = 0
	cfg.IdleInterval = 5 * time.Second
	return cfg
}

func waitDone(t *testing.T, w *pipeship.Pipeship) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not end")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*pipeship.Config)
		wantErr error
	}{
		{"missing destination", func(c *pipeship.Config) { c.Destination = "" }, pipeship.ErrMissingDestination},
		{"https", func(c *pipeship.Config) { c.Destination = "https://example.com/" }, pipeship.ErrUnsupportedScheme},
		{"zip level", func(c *pipeship.Config) { c.ZipLevel = 10 }, pipeship.ErrInvalidConfig},
		{"negative rate", func(c *pipeship.Config) { c.Rate = -1 }, pipeship.ErrInvalidConfig},
		{"negative input", func(c *pipeship.Config) { c.Input = -1 }, pipeship.ErrInvalidConfig},
		{"host field", func(c *pipeship.Config) { c.Fields = map[string]string{"Host": "evil"} }, pipeship.ErrInvalidConfig},
		{"encoding field", func(c *pipeship.Config) { c.Fields = map[string]string{"content-encoding": "gzip"} }, pipeship.ErrInvalidConfig},
		{"field name with colon", func(c *pipeship.Config) { c.Fields = map[string]string{"X-A: b\r\nX-B": "1"} }, pipeship.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://127.0.0.1:1/", 0)
			tt.modify(&cfg)
			_, err := pipeship.New(cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := pipeship.Config{Destination: "http://127.0.0.1/"}
	cfg.SetDefaults()

	def := pipeship.DefaultConfig()
	assert.Equal(t, def.BufferSize, cfg.BufferSize)
	assert.Equal(t, def.IdleInterval, cfg.IdleInterval)
	assert.Zero(t, cfg.Rate, "zero rate means unlimited and is kept")
	assert.Zero(t, cfg.ConnectRetry)
}

func TestPipeship_ForwardsUntilInputDrains(t *testing.T) {
	coll := &collector{}
	srv := httptest.NewServer(coll)
	defer srv.Close()

	r, wfd := inputPipe(t)
	cfg := testConfig(srv.URL+"/ingest", r)
	cfg.DeviceID = "001a2b3c4d5e"
	cfg.Fields = map[string]string{"X-Tenant": "acme"}

	handler := &recordingHandler{}
	var mu sync.Mutex
	var order []string
	w, err := pipeship.New(cfg,
		pipeship.WithEventHandler(handler),
		pipeship.WithPlugin(&trackingPlugin{name: "fields", mu: &mu, order: &order, field: "on"}),
	)
	require.NoError(t, err)
	assert.Equal(t, pipeship.StateStopped, w.Status())

	require.NoError(t, w.Start(context.Background()))

	_, err = unix.Write(wfd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, unix.Close(wfd))

	waitDone(t, w)
	assert.Equal(t, pipeship.StateStopped, w.Status())
	assert.NoError(t, w.Err())

	bodies, headers := coll.snapshot()
	require.Equal(t, []string{"hello"}, bodies)
	assert.Equal(t, "001a2b3c4d5e", headers[0].Get(header.FieldDeviceID))
	assert.Equal(t, "acme", headers[0].Get("X-Tenant"))
	assert.Equal(t, "on", headers[0].Get("X-Plugin"))
	assert.NotEmpty(t, headers[0].Get(header.FieldBatchID))

	assert.Equal(t, []string{"Stopped->Starting", "Starting->Running", "Running->Stopped"}, handler.transitions())
	handler.mu.Lock()
	require.Len(t, handler.sent, 1)
	assert.Equal(t, 5, handler.sent[0].Bytes)
	assert.False(t, handler.sent[0].Compressed)
	handler.mu.Unlock()

	mu.Lock()
	assert.Equal(t, []string{"init fields", "shutdown fields"}, order)
	mu.Unlock()

	assert.ErrorIs(t, w.Stop(), pipeship.ErrNotRunning)
}

func TestPipeship_StopAndRestart(t *testing.T) {
	srv := httptest.NewServer(&collector{})
	defer srv.Close()

	r, _ := inputPipe(t)
	w, err := pipeship.New(testConfig(srv.URL, r))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), pipeship.ErrAlreadyRunning)
	assert.Equal(t, pipeship.StateRunning, w.Status())

	require.NoError(t, w.Stop())
	waitDone(t, w)
	assert.Equal(t, pipeship.StateStopped, w.Status())
	assert.NoError(t, w.Err())
	assert.ErrorIs(t, w.Stop(), pipeship.ErrNotRunning)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.Equal(t, pipeship.StateStopped, w.Status())
}

func TestPipeship_CrashesWhenRetryExhausted(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	r, wfd := inputPipe(t)
	cfg := testConfig("http://"+addr+"/", r)
	cfg.ConnectRetry = 1

	handler := &recordingHandler{}
	w, err := pipeship.New(cfg, pipeship.WithEventHandler(handler))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	_, err = unix.Write(wfd, []byte("lost"))
	require.NoError(t, err)

	waitDone(t, w)
	assert.Equal(t, pipeship.StateCrashed, w.Status())
	assert.ErrorIs(t, w.Err(), pipeship.ErrRetryExhausted)

	handler.mu.Lock()
	require.Len(t, handler.errs, 1)
	assert.Equal(t, 1, handler.errs[0].Attempt)
	handler.mu.Unlock()
}

func TestPipeship_PluginInitFailure(t *testing.T) {
	r, _ := inputPipe(t)

	var mu sync.Mutex
	var order []string
	boom := errors.New("boom")
	w, err := pipeship.New(testConfig("http://127.0.0.1:1/", r),
		pipeship.WithPlugin(&trackingPlugin{name: "a", mu: &mu, order: &order}),
		pipeship.WithPlugin(&trackingPlugin{name: "b", mu: &mu, order: &order, initErr: boom}),
	)
	require.NoError(t, err)

	err = w.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, pipeship.StateCrashed, w.Status())

	mu.Lock()
	assert.Equal(t, []string{"init a", "shutdown a"}, order)
	mu.Unlock()
}

func TestPipeship_CustomHeader(t *testing.T) {
	coll := &collector{}
	srv := httptest.NewServer(coll)
	defer srv.Close()

	r, wfd := inputPipe(t)
	gen := header.NewPost(header.WithDeviceID("custom"))
	cfg := testConfig(srv.URL, r)
	cfg.DeviceID = "ignored"

	w, err := pipeship.New(cfg, pipeship.WithHeader(gen))
	require.NoError(t, err)
	assert.Same(t, gen, w.Header())

	require.NoError(t, w.Start(context.Background()))
	_, err = unix.Write(wfd, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, unix.Close(wfd))
	waitDone(t, w)

	_, headers := coll.snapshot()
	require.Len(t, headers, 1)
	assert.Equal(t, "custom", headers[0].Get(header.FieldDeviceID))
}
