// Package session represents a single connection lifecycle, binding a
// framed server connection with the operator console, a logger and
// per-session metrics under one session ID.
package session

import (
	"io"

	"github.com/google/uuid"

	"smtpc/internal/console"
	"smtpc/internal/metrics"
	"smtpc/internal/wire"
	"smtpc/util"
)

// Session is owned by exactly one goroutine for its whole life.  Only
// Close may be called from elsewhere.
type Session struct {
	ID      string
	Conn    *wire.Conn
	Console *console.Console
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Options tunes a new Session.
type Options struct {
	MaxFrameSize int // 0 = wire.DefaultMaxFrameSize
}

// New wraps rwc in the frame codec and binds it to the console.
func New(rwc io.ReadWriteCloser, con *console.Console, logger *util.Logger, opts Options) *Session {
	id := uuid.NewString()
	m := metrics.New(id)

	wopts := []wire.Option{wire.WithLogger(logger), wire.WithMetrics(m)}
	if opts.MaxFrameSize > 0 {
		wopts = append(wopts, wire.WithMaxFrameSize(opts.MaxFrameSize))
	}

	return &Session{
		ID:      id,
		Conn:    wire.NewConn(rwc, wopts...),
		Console: con,
		Logger:  logger,
		Metrics: m,
	}
}

// Close releases the connection.  Safe to call more than once.
func (s *Session) Close() error {
	return s.Conn.Close()
}
