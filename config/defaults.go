package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, environment loading, and the interactive prompts.

const (
	// DefaultHost is the server dialed when no host is given.
	DefaultHost = "localhost"

	// DefaultPort is the server port offered when none is given.
	DefaultPort = 50000

	// MinPort and MaxPort bound the server port, both exclusive.
	MinPort = 2048
	MaxPort = 65535

	// DefaultLogFile receives the session log.
	DefaultLogFile = "smtpc.log"

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultConnectRetries is how many times the initial dial is
	// attempted when the failure looks transient.
	DefaultConnectRetries = 3

	// DefaultMaxFrameSize bounds an inbound frame.
	DefaultMaxFrameSize = 16 << 20

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultUpstreamPort is used when --upstream names only a host.
	DefaultUpstreamPort = 25
)
