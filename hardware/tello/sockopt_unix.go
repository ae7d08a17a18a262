//go:build unix

package tello

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Fixed local ports must be rebindable right after previous session closed them.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
