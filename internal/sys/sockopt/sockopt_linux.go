//go:build linux

// FILE: internal/sys/sockopt/sockopt_linux.go
package sockopt

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Control returns a net.ListenConfig control hook that sets SO_REUSEADDR
// and, when reusePort is true, SO_REUSEPORT on the listening socket.
func Control(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				opErr = fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
				return
			}
			if reusePort {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					opErr = fmt.Errorf("failed to set SO_REUSEPORT: %w", err)
				}
			}
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
