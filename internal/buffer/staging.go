// Package buffer provides the fixed-capacity staging buffers the transfer
// engine moves bytes through.
//
// A Staging buffer exposes three named cursors over one backing array:
//
//	0 <= parsed <= filled <= limit
//	0 <= sent   <= filled
//
// filled is where the next write lands, sent counts bytes already
// transmitted from the front, parsed counts bytes already consumed by a
// LineReader. Two buffers exchange their contents with Swap, which moves the
// backing arrays instead of copying them.
package buffer

import "errors"

// ErrNoCapacity is returned when a write does not fit in the remaining capacity.
var ErrNoCapacity = errors.New("buffer: insufficient capacity")

// Staging is a fixed-capacity byte buffer with named cursors.
type Staging struct {
	buf    []byte
	limit  int
	filled int
	sent   int
	parsed int
}

// New returns a buffer holding up to capacity bytes.
func New(capacity int) *Staging {
	return NewSized(capacity, capacity)
}

// NewSized returns a buffer with a logical capacity of limit bytes over a
// backing array of size bytes. Buffers that Swap with each other must share
// the same backing size; the logical capacity stays with the buffer.
func NewSized(limit, size int) *Staging {
	if size < limit {
		size = limit
	}
	return &Staging{buf: make([]byte, size), limit: limit}
}

// Cap returns the logical capacity.
func (s *Staging) Cap() int { return s.limit }

// Filled returns the number of bytes written into the buffer.
func (s *Staging) Filled() int { return s.filled }

// Sent returns the number of bytes already transmitted.
func (s *Staging) Sent() int { return s.sent }

// Full reports whether the buffer reached its capacity.
func (s *Staging) Full() bool { return s.filled >= s.limit }

// Empty reports whether nothing has been written.
func (s *Staging) Empty() bool { return s.filled == 0 }

// Free returns the writable tail of the buffer.
func (s *Staging) Free() []byte { return s.buf[s.filled:s.limit] }

// Commit advances filled by n bytes previously written into Free().
func (s *Staging) Commit(n int) {
	if n < 0 || s.filled+n > s.limit {
		panic("buffer: commit beyond capacity")
	}
	s.filled += n
}

// Write appends p, failing with ErrNoCapacity when p does not fit.
// Bytes that fit are kept.
func (s *Staging) Write(p []byte) (int, error) {
	n := copy(s.Free(), p)
	s.filled += n
	if n < len(p) {
		return n, ErrNoCapacity
	}
	return n, nil
}

// WriteByte appends a single byte.
func (s *Staging) WriteByte(c byte) error {
	if s.Full() {
		return ErrNoCapacity
	}
	s.buf[s.filled] = c
	s.filled++
	return nil
}

// Bytes returns the written bytes. The slice aliases the buffer.
func (s *Staging) Bytes() []byte { return s.buf[:s.filled] }

// Unsent returns the written bytes not yet transmitted.
func (s *Staging) Unsent() []byte { return s.buf[s.sent:s.filled] }

// MarkSent records n more bytes as transmitted.
func (s *Staging) MarkSent(n int) {
	if n < 0 || s.sent+n > s.filled {
		panic("buffer: sent beyond filled")
	}
	s.sent += n
}

// Rewind sets filled to n and moves the sent cursor back to the start, so
// the first n bytes are transmitted again from the beginning.
func (s *Staging) Rewind(n int) {
	if n < 0 || n > s.limit {
		panic("buffer: rewind beyond capacity")
	}
	s.filled = n
	s.sent = 0
	if s.parsed > n {
		s.parsed = n
	}
}

// Reset clears all cursors.
func (s *Staging) Reset() {
	s.filled, s.sent, s.parsed = 0, 0, 0
}

// Swap exchanges the contents of s and o: backing arrays and filled cursors
// move, sent and parsed cursors of both buffers reset. Logical capacities
// stay where they are, so each side must be able to hold what it receives.
func (s *Staging) Swap(o *Staging) {
	if len(s.buf) != len(o.buf) {
		panic("buffer: swap between different backing sizes")
	}
	s.buf, o.buf = o.buf, s.buf
	s.filled, o.filled = o.filled, s.filled
	if s.filled > s.limit || o.filled > o.limit {
		panic("buffer: swap moves more bytes than the receiving capacity")
	}
	s.sent, s.parsed = 0, 0
	o.sent, o.parsed = 0, 0
}
