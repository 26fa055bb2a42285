//go:build windows

package server

import "syscall"

// reuseAddrControl sets SO_REUSEADDR on the listening socket before bind.
func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// reusePortControl is a no-op on Windows: SO_REUSEPORT has no Windows
// equivalent exposed by golang.org/x/sys. AcceptPerCore degrades to a
// single acceptor on this platform (§4.9 addition); Server.Start is
// responsible for not calling listenReusePort here in the first place, so
// this exists only to keep the build symmetric across the pair.
func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
