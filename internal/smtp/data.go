package smtp

import (
	"strings"

	ncerr "smtpc/internal/errors"
)

// Body input sentinels, matched case-insensitively.
const (
	SendSentinel = "$SEND"
	LongSentinel = "$LONG"
)

// LongFillerLen is how many filler characters $LONG appends.
const LongFillerLen = 1000

// Terminator ends the message content.
const Terminator = ".\r\n"

const (
	promptSubject      = "What's the subject: "
	promptBlankSubject = "That was blank. Are you sure? [y/n]: "
	promptBody         = "What's the message, type $SEND on a new line to verify " +
		"or type $LONG to test length of the data message."
	promptAgain = "\nPlease enter message again:"
)

// Escape applies the per-line input rules: a lone "." is doubled so it
// cannot end the message early, and $LONG grows into an oversized line.
func Escape(line string) string {
	switch {
	case line == ".":
		return ".."
	case strings.EqualFold(line, LongSentinel):
		return line + strings.Repeat("A", LongFillerLen)
	default:
		return line
	}
}

// Draft collects one message attempt.
type Draft struct {
	subject string
	body    strings.Builder
}

// SetSubject records the subject; an empty one means no header line.
func (d *Draft) SetSubject(s string) {
	if s == "" {
		d.subject = ""
		return
	}
	d.subject = "Subject: " + s + "\r\n"
}

// AddLine escapes line and appends it with a CRLF.
func (d *Draft) AddLine(line string) {
	d.body.WriteString(Escape(line))
	d.body.WriteString("\r\n")
}

// Payload returns the full content to send, terminator included.
func (d *Draft) Payload() string {
	return d.subject + d.body.String() + Terminator
}

// Reset discards everything collected so far.
func (d *Draft) Reset() {
	d.subject = ""
	d.body.Reset()
}

// dataState is the position within one DATA exchange.
type dataState int

const (
	awaitDataReply dataState = iota
	collectingBody
	sent
)

// SendData runs the DATA exchange: it re-issues DATA until the server
// is ready for input, lets the operator compose the message, sends it,
// and starts over with an empty draft until the server accepts it.
func (c *Client) SendData() error {
	var (
		state    = awaitDataReply
		reply    Reply
		draft    Draft
		attempts int
		err      error
	)

	if reply, err = c.Exchange(CmdData); err != nil {
		return err
	}
	attempts++

	for {
		switch state {
		case awaitDataReply:
			if reply.IsIntermediate() {
				state = collectingBody
				continue
			}
			c.op.Report(reply.String())
			c.rejected("DATA", reply)
			if c.MaxDataAttempts > 0 && attempts >= c.MaxDataAttempts {
				return &ncerr.Rejection{Step: "DATA", Reply: reply.String()}
			}
			if reply, err = c.Exchange(CmdData); err != nil {
				return err
			}
			attempts++

		case collectingBody:
			draft.Reset()
			if err := c.compose(&draft); err != nil {
				return err
			}
			if reply, err = c.Exchange(draft.Payload()); err != nil {
				return err
			}
			state = sent

		case sent:
			c.op.Report(reply.String())
			if reply.IsSuccess() {
				c.metrics.MailSent()
				return nil
			}
			c.rejected("message", reply)
			c.metrics.DataRetry()
			draft.Reset()
			if reply, err = c.Exchange(CmdData); err != nil {
				return err
			}
			attempts = 1
			c.op.Report(promptAgain)
			state = awaitDataReply
		}
	}
}

// compose fills d from operator input: a subject, then body lines until
// the send sentinel.
func (c *Client) compose(d *Draft) error {
	subject, err := c.askSubject()
	if err != nil {
		return err
	}
	d.SetSubject(subject)

	prompt := promptBody
	for {
		line, err := c.op.PromptLine(prompt)
		if err != nil {
			return err
		}
		if strings.EqualFold(line, SendSentinel) {
			return nil
		}
		d.AddLine(line)
		prompt = ""
	}
}

func (c *Client) askSubject() (string, error) {
	for {
		subject, err := c.op.PromptLine(promptSubject)
		if err != nil {
			return "", err
		}
		if subject != "" {
			return subject, nil
		}
		sure, err := c.op.PromptYesNo(promptBlankSubject)
		if err != nil {
			return "", err
		}
		if sure {
			return "", nil
		}
	}
}
