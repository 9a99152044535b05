// Package errors provides domain-specific error types for smtpc.
//
// Only a TransportError ends a session.  Rejections and invalid
// operator input are handled where they are detected, so their types
// exist mostly for logging and tests.
package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrClosed        = errors.New("connection is closed")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrInvalidText   = errors.New("frame is not valid UTF-8")
	ErrOperatorGone  = errors.New("operator input closed")
	ErrAuthFailed    = errors.New("authentication failed")

	// ErrTerminated marks a session that ended on a failure the
	// operator has already been told about.
	ErrTerminated = errors.New("session terminated")
)

// ── Structured error types ───────────────────────────────────────────

// TransportError is a failure of the framed stream or of establishing
// it.  It is fatal to the session.
type TransportError struct {
	Op   string // "dial", "write", "read", "close"
	Addr string // remote address, may be empty
	Err  error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unreachable reports whether the connection was never established,
// as opposed to an established stream failing later.
func (e *TransportError) Unreachable() bool { return e.Op == "dial" }

// Rejection is a non-success reply to a step that needed success.
type Rejection struct {
	Step  string // "HELO", "MAIL", "RCPT", "DATA", ...
	Reply string
}

func (e *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Step, e.Reply)
}

// SSHError represents an SSH gateway failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a TransportError.  A nil err yields nil.
func Wrap(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsUnreachable reports whether err means the server could not be
// reached at all.
func IsUnreachable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) && te.Unreachable() {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsRetryable reports whether a dial failure is worth retrying.
// Refused connections count: the server may still be starting.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout() || opErr.Temporary() //nolint:staticcheck
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
