package server

import (
	"context"
	"net"
	"syscall"
)

// listenSingle opens one TCP listener on addr, applying SO_REUSEADDR when
// requested. The socket-option control itself is platform-specific (see
// reuseport_unix.go / reuseport_windows.go) because the raw fd type syscall
// expects differs between unix and windows.
func listenSingle(ctx context.Context, addr string, reuseAddress bool) (net.Listener, error) {
	lc := net.ListenConfig{}
	if reuseAddress {
		lc.Control = reuseAddrControl
	}
	return lc.Listen(ctx, "tcp", addr)
}

// listenReusePort opens one TCP listener on addr with SO_REUSEPORT applied,
// so multiple independent listener sockets can share the same port
// (§4.9's AcceptPerCore). reuseAddrControl is layered in too when
// requested, matching listenSingle.
func listenReusePort(ctx context.Context, addr string, reuseAddress bool) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if reuseAddress {
				if err := reuseAddrControl(network, address, c); err != nil {
					return err
				}
			}
			return reusePortControl(network, address, c)
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}
