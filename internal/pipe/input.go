package pipe

import (
	"fmt"

	"github.com/bft-labs/pipeship/internal/adapters/netio"
	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/ports"
)

func (p *Pipe) dispatchInput(rev int16) error {
	if p.inputClosed || rev&(netio.EventIn|netio.EventHup|netio.EventErr|netio.EventNval) == 0 {
		return nil
	}
	return p.fill()
}

// fill performs one non-blocking read into the input buffer. A full buffer
// that was not flushed in time is discarded first.
func (p *Pipe) fill() error {
	if p.in.Full() {
		p.logger.Warn("input buffer overflow, dropping unflushed bytes",
			ports.Int("dropped", p.in.Filled()),
		)
		p.in.Reset()
	}

	n, err := netio.Read(p.input, p.in.Free())
	if err != nil {
		if netio.Transient(err) {
			return nil
		}
		p.logger.Error("input read failed", ports.Err(err))
		return fmt.Errorf("%w: %v", domain.ErrInputFatal, err)
	}
	if n == 0 {
		p.inputClosed = true
		p.logger.Debug("input closed", ports.Int("pending", p.in.Filled()))
		return nil
	}
	p.in.Commit(n)
	return nil
}
