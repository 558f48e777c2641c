package buffer

import "errors"

// ErrLineTooLong is returned when a line does not fit in the backing buffer.
var ErrLineTooLong = errors.New("buffer: header line too long")

// LineReader assembles lines fed one byte at a time. Lines are stored back
// to back in a Staging buffer; the parsed cursor marks the start of the line
// being assembled. Carriage returns are dropped so both CRLF and bare LF
// framing are accepted. Reset restarts the sequence for the next exchange.
type LineReader struct {
	buf *Staging
}

// NewLineReader returns a reader storing at most capacity bytes of lines.
func NewLineReader(capacity int) *LineReader {
	return &LineReader{buf: New(capacity)}
}

// Feed adds one byte. When c completes a line, Feed returns the line
// without its terminator and true. An empty line with true marks the end of
// a header block. The returned slice is valid until the next Reset.
func (r *LineReader) Feed(c byte) ([]byte, bool, error) {
	switch c {
	case '\r':
		return nil, false, nil
	case '\n':
		line := r.buf.buf[r.buf.parsed:r.buf.filled]
		r.buf.parsed = r.buf.filled
		return line, true, nil
	}
	if err := r.buf.WriteByte(c); err != nil {
		return nil, false, ErrLineTooLong
	}
	return nil, false, nil
}

// Text returns every byte kept since the last Reset.
func (r *LineReader) Text() []byte { return r.buf.Bytes() }

// Reset forgets all lines.
func (r *LineReader) Reset() { r.buf.Reset() }
