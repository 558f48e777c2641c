package netio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

var errNoAddress = errors.New("netio: no address to dial")

// Resolve looks up host once and returns socket addresses for port.
func Resolve(ctx context.Context, host, port string) ([]unix.Sockaddr, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("netio: bad port %q: %w", port, err)
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	addrs := make([]unix.Sockaddr, 0, len(ips))
	for _, ip := range ips {
		if v4 := ip.IP.To4(); v4 != nil {
			sa := &unix.SockaddrInet4{Port: p}
			copy(sa.Addr[:], v4)
			addrs = append(addrs, sa)
			continue
		}
		sa := &unix.SockaddrInet6{Port: p}
		copy(sa.Addr[:], ip.IP.To16())
		if ip.Zone != "" {
			if ifi, err := net.InterfaceByName(ip.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		addrs = append(addrs, sa)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("netio: %s: %w", host, errNoAddress)
	}
	return addrs, nil
}

// Socket is a non-blocking stream socket.
type Socket struct {
	fd int
}

// Dial starts a non-blocking connect to the first address that accepts one.
// The returned socket is connecting; it becomes writable once established
// and Err reports the outcome.
func Dial(addrs []unix.Sockaddr) (*Socket, error) {
	lastErr := errNoAddress
	for _, sa := range addrs {
		family := unix.AF_INET
		if _, ok := sa.(*unix.SockaddrInet6); ok {
			family = unix.AF_INET6
		}
		fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
		if err != nil {
			lastErr = err
			continue
		}
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			lastErr = err
			continue
		}
		err = unix.Connect(fd, sa)
		if err != nil && !errors.Is(err, unix.EINPROGRESS) && !errors.Is(err, unix.EINTR) {
			unix.Close(fd)
			lastErr = err
			continue
		}
		return &Socket{fd: fd}, nil
	}
	return nil, lastErr
}

// Fd returns the descriptor, or -1 once closed.
func (s *Socket) Fd() int { return s.fd }

// Read performs one read.
func (s *Socket) Read(p []byte) (int, error) {
	return Read(s.fd, p)
}

// Writev writes bufs with a single vectored write. Empty buffers are skipped.
func (s *Socket) Writev(bufs ...[]byte) (int, error) {
	iov := bufs[:0:0]
	for _, b := range bufs {
		if len(b) > 0 {
			iov = append(iov, b)
		}
	}
	if len(iov) == 0 {
		return 0, nil
	}
	n, err := writev(s.fd, iov)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Err returns the pending socket error (SO_ERROR), or nil.
func (s *Socket) Err() error {
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Close releases the descriptor. Closing twice is a no-op.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
