package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"smtpc/internal/console"
	ncerr "smtpc/internal/errors"
	"smtpc/internal/retry"
	"smtpc/internal/session"
	"smtpc/internal/smtp"
	"smtpc/internal/transport"
	"smtpc/util"
)

// DefaultGracePeriod is how long Run waits for the session worker after
// the context is cancelled.
const DefaultGracePeriod = 2 * time.Second

// ConnectMode dials the server and runs one interactive session on the
// resulting framed connection.  This is the default mode.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	Logger  *util.Logger

	// Retries is the number of dial attempts for retryable failures.
	Retries int
	// MaxFrameSize bounds inbound frames; 0 uses the wire default.
	MaxFrameSize int
	// MaxDataAttempts caps DATA re-issues; 0 means no limit.
	MaxDataAttempts int
	// Echo repeats operator input on the output, for piped input.
	Echo bool
	// GracePeriod defaults to DefaultGracePeriod.
	GracePeriod time.Duration

	// Console, when set, is used instead of Stdin/Stdout so input
	// already buffered by earlier prompts is not lost.
	Console *console.Console

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) operator() *console.Console {
	if m.Console != nil {
		return m.Console
	}
	return console.New(m.stdin(), m.stdout(), console.WithEcho(m.Echo))
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *ConnectMode) grace() time.Duration {
	if m.GracePeriod > 0 {
		return m.GracePeriod
	}
	return DefaultGracePeriod
}

// Run dials the server, then drives the session on a dedicated
// goroutine until it finishes or ctx is cancelled.  Cancelling ctx
// closes the connection, which unblocks the worker.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	con := m.operator()

	m.Logger.Verbose("connecting to %s", m.Address)

	conn, err := m.dial(ctx)
	if err != nil {
		m.Logger.Error("connect to %s: %v", m.Address, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		con.Reportf("\nHost %s is unreachable. Program has been Terminated ...", m.Address)
		return fmt.Errorf("%w: %v", ncerr.ErrTerminated, err)
	}

	sess := session.New(conn, con, m.Logger, session.Options{MaxFrameSize: m.MaxFrameSize})
	defer sess.Close()

	m.Logger.Info("session %s connected to %s", sess.ID, sess.Conn.Addr())

	client := smtp.NewClient(sess.Conn, con, m.Logger, sess.Metrics)
	client.MaxDataAttempts = m.MaxDataAttempts
	machine := NewMachine(client, con, m.Logger, sess.Metrics)

	done := make(chan error, 1)
	go func() {
		done <- machine.Run()
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		m.Logger.Info("session %s interrupted", sess.ID)
		sess.Close()
		select {
		case <-done:
		case <-time.After(m.grace()):
			m.Logger.Warn("session %s worker still blocked on input", sess.ID)
		}
		err = ctx.Err()
	}

	m.Logger.Info("session %s finished: %s", sess.ID, sess.Metrics.JSON())
	return err
}

// dial connects to the server, retrying failures that may be
// transient.
func (m *ConnectMode) dial(ctx context.Context) (net.Conn, error) {
	b := retry.ConnectBackoff(m.Retries)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Warn("connect attempt %d failed: %v (retrying in %s)",
			attempt, err, wait.Round(time.Millisecond))
	}

	var conn net.Conn
	err := b.Do(ctx, func(int) error {
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			err = ncerr.Wrap("dial", m.Address, err)
			if !ncerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	return conn, err
}
