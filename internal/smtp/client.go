package smtp

import (
	ncerr "smtpc/internal/errors"
	"smtpc/internal/metrics"
	"smtpc/util"
)

// Framer moves whole frames over the connection.  *wire.Conn
// implements it.
type Framer interface {
	Write(text string) error
	Read() (string, error)
	Close() error
}

// Operator is the input and output surface the exchange needs.
// *console.Console implements it.
type Operator interface {
	PromptLine(message string) (string, error)
	PromptYesNo(message string) (bool, error)
	Report(text string)
}

// Operator prompts.
const (
	promptDomain     = "Please enter domain name: "
	promptSender     = "Who do you want to send mail from: "
	promptRecipient  = "Who do you want to send it to: "
	promptAddAnother = "Do you want add another? [y/n]: "
)

// Client performs protocol steps over one framed connection.  Every
// step is exactly one write followed by one read; nothing is pipelined.
//
// Only transport failures and a vanished operator are returned as
// errors.  Rejected steps are handled here by asking the operator
// again.
type Client struct {
	conn    Framer
	op      Operator
	logger  *util.Logger
	metrics *metrics.Collector

	// MaxDataAttempts caps how many times DATA is re-issued while the
	// server does not answer 3xx.  Zero means no limit.
	MaxDataAttempts int
}

// NewClient returns a Client.  logger and m may be nil.
func NewClient(conn Framer, op Operator, logger *util.Logger, m *metrics.Collector) *Client {
	if logger == nil {
		logger = util.Discard()
	}
	return &Client{conn: conn, op: op, logger: logger, metrics: m}
}

// Exchange writes cmd and returns the single reply to it.
func (c *Client) Exchange(cmd string) (Reply, error) {
	if err := c.conn.Write(cmd); err != nil {
		return "", err
	}
	c.metrics.CommandSent()
	return c.read()
}

func (c *Client) read() (Reply, error) {
	text, err := c.conn.Read()
	if err != nil {
		return "", err
	}
	c.metrics.ReplyReceived(text)
	return Reply(text), nil
}

func (c *Client) rejected(step string, r Reply) {
	c.logger.Verbose("%v", &ncerr.Rejection{Step: step, Reply: string(r)})
}

// CheckServerConnection reads the server greeting and reports it.  It
// returns true for a 2xx greeting; otherwise the session must only
// attempt to quit.
func (c *Client) CheckServerConnection() (bool, error) {
	r, err := c.read()
	if err != nil {
		return false, err
	}
	c.op.Report("\n" + r.String())
	if !r.IsSuccess() {
		c.rejected("greeting", r)
		return false, nil
	}
	return true, nil
}

// SendHelo asks for a domain and sends HELO until the server accepts
// it or reports that HELO was already given.
func (c *Client) SendHelo() error {
	return c.untilAccepted("HELO", promptDomain, Helo)
}

// SendMailFrom asks for a sender and sends MAIL FROM with the same
// acceptance rule as SendHelo.
func (c *Client) SendMailFrom() error {
	return c.untilAccepted("MAIL", promptSender, MailFrom)
}

func (c *Client) untilAccepted(step, prompt string, build func(string) string) error {
	for {
		arg, err := c.op.PromptLine(prompt)
		if err != nil {
			return err
		}
		r, err := c.Exchange(build(arg))
		if err != nil {
			return err
		}
		c.op.Report(r.String())
		if r.Accepted() {
			return nil
		}
		c.rejected(step, r)
	}
}

// SendRecipient sends RCPT TO for as many recipients as the operator
// wants.  A rejected recipient ends the loop without asking again.
func (c *Client) SendRecipient() error {
	for {
		rcpt, err := c.op.PromptLine(promptRecipient)
		if err != nil {
			return err
		}
		r, err := c.Exchange(RcptTo(rcpt))
		if err != nil {
			return err
		}
		c.op.Report(r.String())
		if !r.IsSuccess() {
			c.rejected("RCPT", r)
			return nil
		}
		more, err := c.op.PromptYesNo(promptAddAnother)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// SendReset sends RSET and ignores the reply.
func (c *Client) SendReset() error {
	_, err := c.Exchange(CmdRset)
	return err
}

// SendQuit sends QUIT.  The connection is closed when the server
// confirms, or when the exchange itself fails.
func (c *Client) SendQuit() error {
	r, err := c.Exchange(CmdQuit)
	if err != nil {
		c.conn.Close()
		c.op.Report("Client Terminated")
		return err
	}
	if r.IsSuccess() {
		c.op.Report("\nProgram Terminated ...")
		c.conn.Close()
	} else {
		c.rejected("QUIT", r)
	}
	c.op.Report("Client Terminated")
	return nil
}

// Abandon tells the server the client is leaving without waiting for
// a reply, then closes the connection.  It is used once the stream is
// known to be broken, so a write error is only logged.
func (c *Client) Abandon() {
	if err := c.conn.Write(CmdQuit); err != nil {
		c.logger.Debug("quit notification not sent: %v", err)
	}
	c.conn.Close()
}

// Raw sends a command verbatim and reports the reply.
func (c *Client) Raw(cmd string) error {
	r, err := c.Exchange(cmd)
	if err != nil {
		return err
	}
	c.op.Report(r.String())
	return nil
}

// StressRecipients sends StressCount RCPT commands back to back to probe
// the server's recipient limit.  Only the last reply is reported.
func (c *Client) StressRecipients() error {
	var last Reply
	for i := 0; i < StressCount; i++ {
		r, err := c.Exchange(RcptTo(StressRecipient))
		if err != nil {
			return err
		}
		last = r
	}
	c.op.Report(last.String())
	return nil
}
