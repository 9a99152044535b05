// Package transport establishes the byte stream a session runs over:
// a plain TCP connection, or one routed through an SSH gateway.  What
// travels over the stream is the business of the layers above.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
