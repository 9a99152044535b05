package smtp

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smtpc/internal/console"
	ncerr "smtpc/internal/errors"
	"smtpc/internal/metrics"
)

// scriptedConn answers every Read with the next canned reply and
// records every Write.
type scriptedConn struct {
	replies  []string
	written  []string
	closed   int
	writeErr error
}

func (s *scriptedConn) Write(text string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, text)
	return nil
}

func (s *scriptedConn) Read() (string, error) {
	if len(s.replies) == 0 {
		return "", ncerr.Wrap("read", "test", io.EOF)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedConn) Close() error {
	s.closed++
	return nil
}

func newTestClient(input string, replies ...string) (*Client, *scriptedConn, *bytes.Buffer) {
	conn := &scriptedConn{replies: replies}
	var out bytes.Buffer
	op := console.New(strings.NewReader(input), &out)
	return NewClient(conn, op, nil, metrics.New("test")), conn, &out
}

func TestReply_Classification(t *testing.T) {
	tests := []struct {
		reply        Reply
		success      bool
		intermediate bool
		already      bool
		accepted     bool
	}{
		{"250 OK", true, false, false, true},
		{"220-mail.example.com ready", true, false, false, true},
		{"354 start mail input", false, true, false, false},
		{"503 bad sequence", false, false, true, true},
		{"5030 odd", false, false, true, true},
		{"501 syntax", false, false, false, false},
		{"421 closing", false, false, false, false},
		{"", false, false, false, false},
		{"2", true, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.reply), func(t *testing.T) {
			assert.Equal(t, tt.success, tt.reply.IsSuccess())
			assert.Equal(t, tt.intermediate, tt.reply.IsIntermediate())
			assert.Equal(t, tt.already, tt.reply.IsAlreadyInitialized())
			assert.Equal(t, tt.accepted, tt.reply.Accepted())
		})
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "HELO example.com", Helo("example.com"))
	assert.Equal(t, "MAIL FROM:<a@x.com>", MailFrom("a@x.com"))
	assert.Equal(t, "RCPT TO:<b@y.com>", RcptTo("b@y.com"))
	assert.Equal(t, "RCPT TO:<>", RcptTo(""))
}

func TestCheckServerConnection(t *testing.T) {
	c, _, out := newTestClient("", "220 mail.example.com ready")
	ok, err := c.CheckServerConnection()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "220 mail.example.com ready")

	c, conn, _ := newTestClient("", "554 no service")
	ok, err = c.CheckServerConnection()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, conn.written, "the greeting check must not write")
}

func TestCheckServerConnection_StreamClosed(t *testing.T) {
	c, _, _ := newTestClient("")
	_, err := c.CheckServerConnection()
	assert.True(t, ncerr.IsTransport(err))
}

func TestSendHelo_RetriesUntilAccepted(t *testing.T) {
	c, conn, _ := newTestClient("bad domain\nexample.com\n",
		"501 invalid domain", "250 OK")

	require.NoError(t, c.SendHelo())
	assert.Equal(t, []string{"HELO bad domain", "HELO example.com"}, conn.written)
}

func TestSendHelo_AlreadyInitialized(t *testing.T) {
	c, conn, _ := newTestClient("example.com\n", "503 already greeted")

	require.NoError(t, c.SendHelo())
	assert.Len(t, conn.written, 1)
}

func TestSendMailFrom(t *testing.T) {
	c, conn, out := newTestClient("nobody\na@x.com\n",
		"553 bad address", "250 OK")

	require.NoError(t, c.SendMailFrom())
	assert.Equal(t, []string{"MAIL FROM:<nobody>", "MAIL FROM:<a@x.com>"}, conn.written)
	assert.Contains(t, out.String(), "553 bad address")
}

func TestSendRecipient_AddAnother(t *testing.T) {
	c, conn, _ := newTestClient("b@y.com\ny\nc@z.com\nn\n", "250 OK", "250 OK")

	require.NoError(t, c.SendRecipient())
	assert.Equal(t, []string{"RCPT TO:<b@y.com>", "RCPT TO:<c@z.com>"}, conn.written)
}

func TestSendRecipient_RejectionEndsLoop(t *testing.T) {
	c, conn, out := newTestClient("ghost@y.com\ny\n", "550 no such user", "250 OK")

	require.NoError(t, c.SendRecipient())
	assert.Equal(t, []string{"RCPT TO:<ghost@y.com>"}, conn.written)
	assert.NotContains(t, out.String(), promptAddAnother)
}

func TestSendRecipient_RejectionAfterAcceptance(t *testing.T) {
	c, conn, _ := newTestClient("b@y.com\ny\nghost@y.com\n", "250 OK", "550 no such user")

	require.NoError(t, c.SendRecipient())
	assert.Len(t, conn.written, 2)
}

func TestSendReset_IgnoresReply(t *testing.T) {
	c, conn, out := newTestClient("", "500 what")

	require.NoError(t, c.SendReset())
	assert.Equal(t, []string{"RSET"}, conn.written)
	assert.Empty(t, out.String())
}

func TestSendQuit(t *testing.T) {
	c, conn, out := newTestClient("", "221 Bye")
	require.NoError(t, c.SendQuit())
	assert.Equal(t, []string{"QUIT"}, conn.written)
	assert.Equal(t, 1, conn.closed)
	assert.Contains(t, out.String(), "Program Terminated")
	assert.Contains(t, out.String(), "Client Terminated")
}

func TestSendQuit_NotConfirmed(t *testing.T) {
	c, conn, out := newTestClient("", "500 nope")
	require.NoError(t, c.SendQuit())
	assert.Equal(t, 0, conn.closed)
	assert.NotContains(t, out.String(), "Program Terminated")
	assert.Contains(t, out.String(), "Client Terminated")
}

func TestSendQuit_StreamBroken(t *testing.T) {
	c, conn, out := newTestClient("")
	err := c.SendQuit()
	assert.True(t, ncerr.IsTransport(err))
	assert.Equal(t, 1, conn.closed)
	assert.Contains(t, out.String(), "Client Terminated")
}

func TestRaw(t *testing.T) {
	c, conn, out := newTestClient("", "250 2.0.0 OK")
	require.NoError(t, c.Raw("NOOP"))
	assert.Equal(t, []string{"NOOP"}, conn.written)
	assert.Equal(t, "250 2.0.0 OK\n", out.String())
}

func TestStressRecipients(t *testing.T) {
	replies := make([]string, 0, StressCount)
	for i := 0; i < StressCount-1; i++ {
		replies = append(replies, "250 OK")
	}
	replies = append(replies, "452 too many recipients")
	c, conn, out := newTestClient("", replies...)

	require.NoError(t, c.StressRecipients())
	require.Len(t, conn.written, StressCount)
	for _, w := range conn.written {
		assert.Equal(t, "RCPT TO:<MAX@MAX>", w)
	}
	assert.Equal(t, "452 too many recipients\n", out.String())
	assert.Empty(t, conn.replies, "every reply must be read")
}

func TestExchange_WriteFailure(t *testing.T) {
	conn := &scriptedConn{writeErr: ncerr.Wrap("write", "x", io.ErrClosedPipe)}
	c := NewClient(conn, console.New(strings.NewReader(""), io.Discard), nil, nil)

	_, err := c.Exchange("NOOP")
	assert.True(t, ncerr.IsTransport(err))
}

func TestSendHelo_OperatorGone(t *testing.T) {
	c, conn, _ := newTestClient("", "250 OK")
	err := c.SendHelo()
	assert.ErrorIs(t, err, ncerr.ErrOperatorGone)
	assert.Empty(t, conn.written)
}

func TestAbandon(t *testing.T) {
	c, conn, _ := newTestClient("")
	c.Abandon()
	assert.Equal(t, []string{"QUIT"}, conn.written)
	assert.Equal(t, 1, conn.closed)

	broken := &scriptedConn{writeErr: ncerr.Wrap("write", "x", io.ErrClosedPipe)}
	c = NewClient(broken, console.New(strings.NewReader(""), io.Discard), nil, nil)
	c.Abandon()
	assert.Equal(t, 1, broken.closed)
}
