package pipe

import (
	"errors"
	"fmt"

	"github.com/bft-labs/pipeship/internal/adapters/netio"
	"github.com/bft-labs/pipeship/internal/ports"
)

// ensureConnection starts a connect when a batch is ready and no connection
// exists, once the reconnect delay has elapsed.
func (p *Pipe) ensureConnection() {
	if p.c != nil {
		return
	}
	now := p.now()
	if now.Before(p.nextDial) {
		return
	}

	c, err := p.dial()
	if err != nil {
		p.fail("connect failed", err)
		return
	}
	p.c = c
	p.connecting = true
	p.persistent = true
	p.lastProgress = now
	p.logger.Debug("connecting", ports.String("destination", p.ep.HostPort()))
}

func (p *Pipe) finishConnect() {
	if err := p.c.Err(); err != nil {
		p.fail("connect failed", err)
		return
	}
	p.connecting = false
	p.lastProgress = p.now()
	p.logger.Debug("connected", ports.String("destination", p.ep.HostPort()))

	if p.active && p.flow == flowRequest && p.holdoff(p.lastProgress) == 0 {
		p.sendRequest()
	}
}

// handleSocketError reacts to an error or hangup reported on the connection.
func (p *Pipe) handleSocketError() {
	err := p.c.Err()
	if err == nil {
		err = errors.New("connection hangup")
	}
	if !p.active {
		p.logger.Debug("idle connection dropped", ports.Err(err))
		p.closeConn()
		return
	}
	p.fail("socket error", err)
}

// drainIdle handles readability of a kept-alive connection with no batch in
// flight: the peer closed it or sent bytes nobody asked for.
func (p *Pipe) drainIdle() {
	n, err := p.c.Read(p.discard[:1])
	if err != nil && netio.Transient(err) {
		return
	}
	p.logger.Debug("closing idle connection",
		ports.Int("unexpected_bytes", n),
		ports.Any("error", err),
	)
	p.closeConn()
}

// fail ends the current attempt: the retry counter grows, the batch is
// rolled back, and the connection is dropped until the backoff elapses.
func (p *Pipe) fail(reason string, err error) {
	p.retry++
	if err == nil {
		err = errors.New(reason)
	} else {
		err = fmt.Errorf("%s: %w", reason, err)
	}

	fields := []ports.Field{
		ports.Err(err),
		ports.Int("retry", p.retry),
		ports.Int("connect_retry", p.cfg.ConnectRetry),
	}
	if code := errno(err); code != "" {
		fields = append(fields, ports.String("errno", code))
	}
	if p.active {
		fields = append(fields, ports.Int("batch_bytes", p.originalLen))
	}
	p.logger.Warn("transfer attempt failed", fields...)
	p.emitter.OnSendError(err, p.retry)

	p.rollback()
	p.closeConn()
	p.nextDial = p.now().Add(p.backoff.Next())
}

// rollback discards the progress of the batch in flight so that the next
// attempt sends the same head and the same body from the first byte.
func (p *Pipe) rollback() {
	if !p.active {
		return
	}
	p.out.Rewind(p.originalLen)
	p.headSent = 0
	p.remaining = 0
	p.resp.reset()
	p.reqPhase = phaseHead
	p.respPhase = phaseHead
	p.flow = flowRequest
	p.persistent = false
	p.throttle.reset()
}

// release ends a run. A batch in flight is rewound so that the next run
// resends it whole on a new connection.
func (p *Pipe) release() {
	p.rollback()
	p.closeConn()
}

func (p *Pipe) closeConn() {
	if p.c == nil {
		return
	}
	if err := p.c.Close(); err != nil {
		p.logger.Debug("close connection", ports.Err(err))
	}
	p.c = nil
	p.connecting = false
}
