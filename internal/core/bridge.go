package core

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"

	ncerr "smtpc/internal/errors"
	"smtpc/internal/session"
	"smtpc/internal/smtp"
	"smtpc/internal/transport"
	"smtpc/util"
)

// BridgeMode accepts framed clients and relays each one to a
// line-oriented SMTP server.  With KeepOpen=true it serves clients
// concurrently until ctx is cancelled; otherwise it serves one client
// and returns.
type BridgeMode struct {
	Address      string // ":port"
	Upstream     string // host:port of the line SMTP server
	Dialer       transport.Dialer
	KeepOpen     bool
	MaxFrameSize int
	Logger       *util.Logger

	// ready, when set, receives the bound listen address.
	ready chan<- net.Addr
}

// Run listens on Address and bridges accepted clients.
func (m *BridgeMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	defer ln.Close()

	m.Logger.Verbose("bridging %s -> %s", ln.Addr(), m.Upstream)
	if m.ready != nil {
		m.ready <- ln.Addr()
	}

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		m.Logger.Verbose("connection from %s", conn.RemoteAddr())

		if m.KeepOpen {
			go func() {
				if err := m.serveConn(ctx, conn); err != nil {
					m.Logger.Error("bridge %s: %v", conn.RemoteAddr(), err)
				}
			}()
		} else {
			return m.serveConn(ctx, conn)
		}
	}
}

func (m *BridgeMode) serveConn(ctx context.Context, conn net.Conn) error {
	sess := session.New(conn, nil, m.Logger, session.Options{MaxFrameSize: m.MaxFrameSize})
	defer sess.Close()

	up, err := m.Dialer.Dial(ctx, "tcp", m.Upstream)
	if err != nil {
		return ncerr.Wrap("dial", m.Upstream, err)
	}
	tp := textproto.NewConn(up)
	defer tp.Close()

	m.Logger.Info("session %s bridged to %s", sess.ID, m.Upstream)

	err = relay(sess, tp)
	m.Logger.Info("session %s finished: %s", sess.ID, sess.Metrics.JSON())
	return err
}

// relay moves one exchange at a time: a client frame goes upstream,
// the upstream reply comes back as one frame.  After a 354 the next
// frame is message content; it already carries its line breaks and
// terminator, so it is only dot-stuffed before it is written.
func relay(sess *session.Session, tp *textproto.Conn) error {
	if _, err := readReply(sess, tp); err != nil {
		return err
	}

	content := false
	for {
		frame, err := sess.Conn.Read()
		if err != nil {
			if util.IsClosedConn(err) {
				return nil
			}
			return err
		}

		if content {
			if _, err := tp.W.WriteString(stuffDots(frame)); err == nil {
				err = tp.W.Flush()
			}
			if err != nil {
				return ncerr.Wrap("write", "upstream", err)
			}
		} else if err := tp.PrintfLine("%s", frame); err != nil {
			return ncerr.Wrap("write", "upstream", err)
		}

		code, err := readReply(sess, tp)
		if err != nil {
			return err
		}
		sess.Metrics.CommandSent()

		quit := !content && strings.EqualFold(strings.TrimSpace(frame), smtp.CmdQuit)
		content = !content && code == 354
		if quit && code == 221 {
			return nil
		}
	}
}

// stuffDots doubles the leading dot of content lines for a line-SMTP
// server.  The client already sends a lone "." line as "..", so that
// line is left alone, as is the closing ".\r\n".
func stuffDots(frame string) string {
	body, terminated := strings.CutSuffix(frame, ".\r\n")
	if terminated && body != "" && !strings.HasSuffix(body, "\r\n") {
		body, terminated = frame, false
	}

	var b strings.Builder
	b.Grow(len(frame) + 8)
	for _, line := range strings.SplitAfter(body, "\r\n") {
		if strings.HasPrefix(line, ".") && line != "..\r\n" {
			b.WriteByte('.')
		}
		b.WriteString(line)
	}
	if terminated {
		b.WriteString(".\r\n")
	}
	return b.String()
}

// readReply reads one possibly multi-line reply and sends it to the
// client as a single frame.
func readReply(sess *session.Session, tp *textproto.Conn) (int, error) {
	code, msg, err := tp.ReadResponse(0)
	if err != nil {
		return 0, ncerr.Wrap("read", "upstream", err)
	}
	text := joinReply(code, msg)
	sess.Metrics.ReplyReceived(text)
	if err := sess.Conn.Write(text); err != nil {
		return 0, err
	}
	return code, nil
}

// joinReply rebuilds the reply lines textproto folded into msg.
func joinReply(code int, msg string) string {
	lines := strings.Split(msg, "\n")
	var b strings.Builder
	for i, line := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		if i > 0 {
			b.WriteString("\r\n")
		}
		fmt.Fprintf(&b, "%03d%s%s", code, sep, line)
	}
	return b.String()
}
