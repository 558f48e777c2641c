//go:build unix && !linux

package netio

import "golang.org/x/sys/unix"

// writev emulates a vectored write with sequential writes, stopping at the
// first short write so the caller sees the same partial-progress contract.
func writev(fd int, bufs [][]byte) (int, error) {
	total := 0
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := unix.Write(fd, b)
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}
