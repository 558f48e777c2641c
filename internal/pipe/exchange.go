package pipe

import (
	"errors"

	"github.com/bft-labs/pipeship/internal/adapters/netio"
	"github.com/bft-labs/pipeship/internal/ports"
)

// prepare compresses the batch and builds its head. It runs once per batch;
// retries reuse both.
func (p *Pipe) prepare() {
	if p.zip != nil {
		raw := p.out.Filled()
		if err := p.zip.compress(p.out); err != nil {
			p.logger.Warn("compression failed, sending uncompressed",
				ports.Err(err),
				ports.Int("bytes", raw),
			)
			p.header.SetField("Content-Encoding", "")
		} else {
			p.compressed = true
			p.header.SetField("Content-Encoding", "deflate")
			p.logger.Debug("batch compressed",
				ports.Int("bytes", raw),
				ports.Int("compressed", p.out.Filled()),
			)
		}
	}
	p.originalLen = p.out.Filled()
	p.head = append(p.head[:0], p.header.Generate(p.originalLen)...)
	p.headSent = 0
}

// sendRequest writes as much of the head and body as the connection and the
// rate limit take. Body bytes count as sent only once the head is out.
func (p *Pipe) sendRequest() {
	if len(p.head) == 0 {
		p.prepare()
	}

	now := p.now()
	head := p.head[p.headSent:]
	body := p.out.Unsent()
	if limit := p.throttle.chunk(); limit >= 0 {
		if len(head) > limit {
			head = head[:limit]
		}
		if rest := limit - len(head); len(body) > rest {
			body = body[:rest]
		}
	}

	n, err := p.c.Writev(head, body)
	if err != nil {
		if netio.Transient(err) {
			return
		}
		p.fail("write failed", err)
		return
	}
	if n == 0 {
		p.fail("write failed", errors.New("nothing written"))
		return
	}
	p.lastProgress = now
	p.throttle.record(now, n)

	hn := n
	if hn > len(head) {
		hn = len(head)
	}
	p.headSent += hn
	p.out.MarkSent(n - hn)

	if p.headSent < len(p.head) {
		return
	}
	p.reqPhase = phaseBody
	if p.out.Sent() < p.out.Filled() {
		return
	}

	p.flow = flowResponse
	p.reqPhase = phaseHead
	p.respPhase = phaseHead
	p.resp.reset()
}

// readResponse consumes response bytes: the head one byte per read, then
// exactly Content-Length body bytes.
func (p *Pipe) readResponse() {
	if p.respPhase == phaseHead {
		p.readResponseHead()
		return
	}

	buf := p.discard
	if len(buf) > p.remaining {
		buf = buf[:p.remaining]
	}
	n, ok := p.read(buf)
	if !ok {
		return
	}
	p.remaining -= n
	if p.remaining == 0 {
		p.complete()
	}
}

func (p *Pipe) readResponseHead() {
	var b [1]byte
	if _, ok := p.read(b[:]); !ok {
		return
	}

	done, err := p.resp.feed(b[0])
	if err != nil {
		p.fail("bad response", err)
		return
	}
	if !done {
		return
	}

	if !p.resp.success() {
		p.logger.Warn("unexpected response status",
			ports.Int("status", p.resp.status),
			ports.String("destination", p.ep.String()),
		)
	}
	p.respPhase = phaseBody
	p.remaining = p.resp.contentLength
	if p.remaining == 0 {
		p.complete()
	}
}

// read performs one read on the connection. It reports false when nothing
// was read; a closed or failed connection fails the attempt.
func (p *Pipe) read(buf []byte) (int, bool) {
	n, err := p.c.Read(buf)
	if err != nil {
		if !netio.Transient(err) {
			p.fail("read failed", err)
		}
		return 0, false
	}
	if n == 0 {
		p.fail("connection closed by peer", nil)
		return 0, false
	}
	p.lastProgress = p.now()
	return n, true
}

// complete acknowledges the batch in flight.
func (p *Pipe) complete() {
	elapsed := p.now().Sub(p.started)
	p.logger.Info("batch sent",
		ports.Int("bytes", p.originalLen),
		ports.Bool("compressed", p.compressed),
		ports.Int("status", p.resp.status),
		ports.Duration("duration", elapsed),
	)
	p.emitter.OnBatchSent(p.originalLen, p.compressed, elapsed)

	p.retry = 0
	p.backoff.Reset()
	p.active = false
	p.out.Reset()
	p.head = p.head[:0]
	p.headSent = 0
	p.flow = flowRequest
	p.reqPhase = phaseHead
	p.respPhase = phaseHead
	p.throttle.reset()

	if !p.persistent || !p.resp.persistent() {
		p.logger.Debug("closing non-persistent connection")
		p.closeConn()
	}
	p.resp.reset()
}
