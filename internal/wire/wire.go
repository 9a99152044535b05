// Package wire implements the private framing used between smtpc and
// its server: every message is a 4-byte big-endian length followed by
// that many bytes of text.
//
// Frames make read boundaries explicit, so message bodies may carry
// their own "\r\n" sequences as plain content.
package wire

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	ncerr "smtpc/internal/errors"
	"smtpc/internal/metrics"
	"smtpc/util"
)

// HeaderSize is the length of the frame header in bytes.
const HeaderSize = 4

// DefaultMaxFrameSize bounds a single inbound frame.  A larger header
// almost certainly means the stream is out of sync.
const DefaultMaxFrameSize = 16 << 20

// Encode converts text to 7-bit ASCII and prepends the length header.
// Runes outside ASCII are replaced by '?'.
func Encode(text string) []byte {
	body := toASCII(text)
	buf := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[HeaderSize:], body)
	return buf
}

// Decode reads exactly one frame from r.  A zero length yields "".
func Decode(r io.Reader, maxSize int) (string, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return "", nil
	}
	if maxSize > 0 && uint64(n) > uint64(maxSize) {
		return "", ncerr.ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	if !utf8.Valid(body) {
		return "", ncerr.ErrInvalidText
	}
	return string(body), nil
}

func toASCII(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0x7F {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

// Conn sends and receives whole frames over a stream.  It is meant to
// be driven by one goroutine at a time; Close may be called from any.
type Conn struct {
	rwc     io.ReadWriteCloser
	r       *bufio.Reader
	w       *bufio.Writer
	addr    string
	maxSize int
	logger  *util.Logger
	metrics *metrics.Collector

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger logs every frame at debug level.
func WithLogger(l *util.Logger) Option { return func(c *Conn) { c.logger = l } }

// WithMetrics reports frame counts and sizes to m.
func WithMetrics(m *metrics.Collector) Option { return func(c *Conn) { c.metrics = m } }

// WithMaxFrameSize overrides DefaultMaxFrameSize.
func WithMaxFrameSize(n int) Option { return func(c *Conn) { c.maxSize = n } }

// NewConn wraps rwc.  If rwc is a net.Conn its remote address is used
// in error messages.
func NewConn(rwc io.ReadWriteCloser, opts ...Option) *Conn {
	c := &Conn{
		rwc:     rwc,
		r:       bufio.NewReader(rwc),
		w:       bufio.NewWriter(rwc),
		maxSize: DefaultMaxFrameSize,
		logger:  util.Discard(),
	}
	if nc, ok := rwc.(net.Conn); ok && nc.RemoteAddr() != nil {
		c.addr = nc.RemoteAddr().String()
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Addr returns the remote address, or "" if unknown.
func (c *Conn) Addr() string { return c.addr }

// Write sends text as one frame and flushes it.
func (c *Conn) Write(text string) error {
	if c.isClosed() {
		return ncerr.Wrap("write", c.addr, ncerr.ErrClosed)
	}
	frame := Encode(text)
	if _, err := c.w.Write(frame[:HeaderSize]); err != nil {
		return ncerr.Wrap("write", c.addr, err)
	}
	if err := c.w.Flush(); err != nil {
		return ncerr.Wrap("write", c.addr, err)
	}
	if _, err := c.w.Write(frame[HeaderSize:]); err != nil {
		return ncerr.Wrap("write", c.addr, err)
	}
	if err := c.w.Flush(); err != nil {
		return ncerr.Wrap("write", c.addr, err)
	}
	c.metrics.FrameSent(len(frame) - HeaderSize)
	c.logger.Debug("C: %s", preview(text))
	return nil
}

// Read blocks until one complete frame has arrived.
func (c *Conn) Read() (string, error) {
	if c.isClosed() {
		return "", ncerr.Wrap("read", c.addr, ncerr.ErrClosed)
	}
	text, err := Decode(c.r, c.maxSize)
	if err != nil {
		return "", ncerr.Wrap("read", c.addr, err)
	}
	c.metrics.FrameReceived(len(text))
	c.logger.Debug("S: %s", preview(text))
	return text, nil
}

// Close releases the stream.  It is safe to call more than once and
// never fails: close errors are logged, not returned.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if err := c.rwc.Close(); err != nil && !util.IsClosedConn(err) {
			c.logger.Warn("closing connection to %s: %v", c.addr, err)
			return
		}
		c.logger.Verbose("connection to %s closed", c.addr)
	})
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool { return c.isClosed() }

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// preview keeps debug lines readable for multi-line DATA payloads.
func preview(text string) string {
	if strings.ContainsAny(text, "\r\n") {
		return "<" + strconv.Itoa(len(text)) + " bytes of message content>"
	}
	return text
}

// Pipe returns two framed endpoints joined by an in-memory
// synchronous connection.
func Pipe(opts ...Option) (*Conn, *Conn) {
	a, b := net.Pipe()
	return NewConn(a, opts...), NewConn(b)
}
