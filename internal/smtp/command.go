package smtp

// Commands without arguments.
const (
	CmdData = "DATA"
	CmdRset = "RSET"
	CmdQuit = "QUIT"
)

// StressRecipient is the address used by the recipient-limit test.
const StressRecipient = "MAX@MAX"

// StressCount is how many RCPT commands the recipient-limit test sends.
const StressCount = 101

// Helo builds "HELO <domain>".
func Helo(domain string) string { return "HELO " + domain }

// MailFrom builds "MAIL FROM:<addr>".
func MailFrom(addr string) string { return "MAIL FROM:<" + addr + ">" }

// RcptTo builds "RCPT TO:<addr>".
func RcptTo(addr string) string { return "RCPT TO:<" + addr + ">" }
