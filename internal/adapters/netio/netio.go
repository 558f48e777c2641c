// Package netio wraps the raw descriptor operations the transfer engine is
// built on: readiness polling, non-blocking reads and writes, non-blocking
// connect and socket error retrieval. Every descriptor handled here is in
// non-blocking mode; no call in this package waits except Poll.
package netio

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Poll event bits.
const (
	EventIn   = unix.POLLIN
	EventOut  = unix.POLLOUT
	EventErr  = unix.POLLERR
	EventHup  = unix.POLLHUP
	EventNval = unix.POLLNVAL
)

// PollFd is one entry of a readiness wait. A negative Fd is ignored.
type PollFd = unix.PollFd

// Poll waits until one of fds is ready or timeout elapses. It returns the
// number of ready entries; an interrupted wait reports zero ready entries.
func Poll(fds []PollFd, timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Transient reports whether err only means "not now": the operation would
// block or was interrupted and can be retried on the next readiness.
func Transient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// Read performs one read on fd. Zero bytes with a nil error means end of input.
func Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

// SetNonblock switches fd between blocking and non-blocking mode.
func SetNonblock(fd int, on bool) error {
	return unix.SetNonblock(fd, on)
}

// IsNonblock reports whether fd is in non-blocking mode.
func IsNonblock(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK != 0, nil
}
