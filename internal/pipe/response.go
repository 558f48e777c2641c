package pipe

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/bft-labs/pipeship/internal/buffer"
)

var errMalformedResponse = errors.New("malformed response")

// responseHead parses a response head fed one byte at a time.
type responseHead struct {
	lines *buffer.LineReader

	statusSeen    bool
	proto         string
	status        int
	contentLength int
	close         bool
	keepAlive     bool
}

func newResponseHead(limit int) *responseHead {
	return &responseHead{lines: buffer.NewLineReader(limit)}
}

// feed consumes one byte. It reports true once the head of a final response
// is complete. Interim 1xx heads are skipped.
func (h *responseHead) feed(c byte) (bool, error) {
	line, ok, err := h.lines.Feed(c)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if !ok {
		return false, nil
	}

	if len(line) == 0 {
		if !h.statusSeen {
			return false, nil
		}
		if h.status >= 100 && h.status < 200 {
			h.reset()
			return false, nil
		}
		return true, nil
	}

	if !h.statusSeen {
		return false, h.parseStatus(line)
	}
	return false, h.parseField(line)
}

func (h *responseHead) parseStatus(line []byte) error {
	proto, rest, ok := bytes.Cut(line, []byte(" "))
	if !ok || !bytes.HasPrefix(proto, []byte("HTTP/")) {
		return fmt.Errorf("%w: status line %q", errMalformedResponse, line)
	}
	code, _, _ := bytes.Cut(bytes.TrimLeft(rest, " "), []byte(" "))
	status, err := strconv.Atoi(string(code))
	if err != nil || len(code) != 3 || status < 100 {
		return fmt.Errorf("%w: status line %q", errMalformedResponse, line)
	}
	h.proto = string(proto)
	h.status = status
	h.statusSeen = true
	return nil
}

func (h *responseHead) parseField(line []byte) error {
	name, value, ok := bytes.Cut(line, []byte(":"))
	if !ok {
		// Unknown line shapes are ignored, only three fields matter.
		return nil
	}
	name = bytes.TrimSpace(name)
	value = bytes.TrimSpace(value)

	switch {
	case bytes.EqualFold(name, []byte("Content-Length")):
		n, err := strconv.Atoi(string(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: content length %q", errMalformedResponse, value)
		}
		h.contentLength = n
	case bytes.EqualFold(name, []byte("Connection")):
		for _, tok := range bytes.Split(value, []byte(",")) {
			tok = bytes.TrimSpace(tok)
			switch {
			case bytes.EqualFold(tok, []byte("close")):
				h.close = true
			case bytes.EqualFold(tok, []byte("keep-alive")):
				h.keepAlive = true
			}
		}
	}
	return nil
}

// persistent reports whether the connection may carry the next request.
func (h *responseHead) persistent() bool {
	if h.close {
		return false
	}
	if h.proto == "HTTP/1.0" {
		return h.keepAlive
	}
	return true
}

// success reports a 2xx status.
func (h *responseHead) success() bool {
	return h.status >= 200 && h.status < 300
}

func (h *responseHead) reset() {
	h.lines.Reset()
	h.statusSeen = false
	h.proto = ""
	h.status = 0
	h.contentLength = 0
	h.close = false
	h.keepAlive = false
}
