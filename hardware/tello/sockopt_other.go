//go:build !unix

package tello

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error { return nil }
