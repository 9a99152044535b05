// Package smtp drives the command/reply exchange with the server: it
// builds commands, sends each one as a single frame, reads exactly one
// reply, and decides what to do by the reply's status class.
package smtp

import "strings"

// Reply is one server response, "<code><sp-or-dash><text>".  Only the
// leading character is interpreted, plus a literal "503" prefix.
type Reply string

// IsSuccess reports a 2xx reply.
func (r Reply) IsSuccess() bool { return len(r) > 0 && r[0] == '2' }

// IsIntermediate reports a 3xx reply: the server wants more input.
func (r Reply) IsIntermediate() bool { return len(r) > 0 && r[0] == '3' }

// IsAlreadyInitialized reports a 503 reply, which HELO and MAIL treat
// as "this step was already done".
func (r Reply) IsAlreadyInitialized() bool { return strings.HasPrefix(string(r), "503") }

// Accepted is the acceptance rule for HELO and MAIL FROM.
func (r Reply) Accepted() bool { return r.IsSuccess() || r.IsAlreadyInitialized() }

func (r Reply) String() string { return string(r) }
