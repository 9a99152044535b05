// Package metrics provides lightweight, lock-free counters for
// tracking what happened during one smtpc session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	framesIn   atomic.Int64
	framesOut  atomic.Int64
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	commands   atomic.Int64
	replies    [6]atomic.Int64 // indexed by status class; 0 = unclassified
	mailsSent  atomic.Int64
	dataRetry  atomic.Int64
	errorsSeen atomic.Int64

	mu           sync.RWMutex
	sessionID    string
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New(sessionID string) *Collector {
	return &Collector{sessionID: sessionID, startTime: time.Now()}
}

// ── Frame metrics ────────────────────────────────────────────────────

// FrameReceived records one inbound frame carrying n content bytes.
func (c *Collector) FrameReceived(n int) {
	if c == nil {
		return
	}
	c.framesIn.Add(1)
	c.bytesIn.Add(int64(n))
}

// FrameSent records one outbound frame carrying n content bytes.
func (c *Collector) FrameSent(n int) {
	if c == nil {
		return
	}
	c.framesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

// TotalBytesIn returns total content bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total content bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// CommandSent counts one command written to the server.
func (c *Collector) CommandSent() {
	if c == nil {
		return
	}
	c.commands.Add(1)
}

// ReplyReceived counts a reply by its leading status character.
func (c *Collector) ReplyReceived(reply string) {
	if c == nil {
		return
	}
	idx := 0
	if len(reply) > 0 && reply[0] >= '1' && reply[0] <= '5' {
		idx = int(reply[0] - '0')
	}
	c.replies[idx].Add(1)
}

// Replies returns how many replies of status class n (1-5) were seen.
func (c *Collector) Replies(class int) int64 {
	if c == nil || class < 0 || class >= len(c.replies) {
		return 0
	}
	return c.replies[class].Load()
}

// MailSent counts a message accepted by the server.
func (c *Collector) MailSent() {
	if c == nil {
		return
	}
	c.mailsSent.Add(1)
}

// MailsSent returns the number of accepted messages.
func (c *Collector) MailsSent() int64 {
	if c == nil {
		return 0
	}
	return c.mailsSent.Load()
}

// DataRetry counts a restarted DATA exchange.
func (c *Collector) DataRetry() {
	if c == nil {
		return
	}
	c.dataRetry.Add(1)
}

// DataRetries returns the number of restarted DATA exchanges.
func (c *Collector) DataRetries() int64 {
	if c == nil {
		return 0
	}
	return c.dataRetry.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsSeen.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsSeen.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	SessionID        string `json:"session_id"`
	Uptime           string `json:"uptime"`
	FramesIn         int64  `json:"frames_in"`
	FramesOut        int64  `json:"frames_out"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Commands         int64  `json:"commands"`
	Replies2xx       int64  `json:"replies_2xx"`
	Replies3xx       int64  `json:"replies_3xx"`
	Replies4xx       int64  `json:"replies_4xx"`
	Replies5xx       int64  `json:"replies_5xx"`
	MailsSent        int64  `json:"mails_sent"`
	DataRetries      int64  `json:"data_retries"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		SessionID:   c.sessionID,
		Uptime:      time.Since(c.startTime).Truncate(time.Second).String(),
		FramesIn:    c.framesIn.Load(),
		FramesOut:   c.framesOut.Load(),
		BytesIn:     c.bytesIn.Load(),
		BytesOut:    c.bytesOut.Load(),
		Commands:    c.commands.Load(),
		Replies2xx:  c.replies[2].Load(),
		Replies3xx:  c.replies[3].Load(),
		Replies4xx:  c.replies[4].Load(),
		Replies5xx:  c.replies[5].Load(),
		MailsSent:   c.mailsSent.Load(),
		DataRetries: c.dataRetry.Load(),
		ErrorsTotal: c.errorsSeen.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as a compact JSON string, suitable for a
// single log line.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.Marshal(s)
	return string(data)
}
