package util

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitAddr parses "host[:port]", falling back to defaultPort when the
// port is omitted.
func SplitAddr(addr string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port present.
		if _, _, err2 := net.SplitHostPort(addr + ":0"); err2 != nil {
			return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
		}
		if addr == "" {
			return "", 0, fmt.Errorf("empty address")
		}
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in %q", portStr, addr)
	}
	if host == "" {
		host = "localhost"
	}
	return host, port, nil
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// IsClosedConn reports errors that are expected when a connection is
// torn down: EOF, use of a closed connection, a closed pipe, or a
// reset from the peer.
func IsClosedConn(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}
