// Package config defines the runtime configuration for smtpc and
// provides helpers for parsing ports and tunnel specs.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "smtpc/internal/errors"
	"smtpc/util"
)

// Config holds every tuneable for a single smtpc run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host           string
	Port           int
	PortGiven      bool // Port came from a flag or the environment
	Timeout        time.Duration
	ConnectRetries int
	MaxFrameSize   int
	// MaxDataAttempts caps DATA re-issues while the server is not
	// ready; 0 keeps asking forever.
	MaxDataAttempts int

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Bridge ───────────────────────────────────────────────────────
	Bridge    bool
	Listen    bool
	LocalPort int    // -p: bridge listen port
	Upstream  string // host[:port] of the line SMTP server
	KeepOpen  bool

	// ── Output ───────────────────────────────────────────────────────
	Verbose  bool // echo failures to the console
	LogLevel int  // -v count
	LogFile  string
	NoBanner bool
	Echo     bool // repeat operator input, for piped sessions
}

// Default returns a Config populated with the defaults.
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Timeout:        DefaultConnTimeout,
		ConnectRetries: DefaultConnectRetries,
		MaxFrameSize:   DefaultMaxFrameSize,
		Verbose:        true,
		LogFile:        DefaultLogFile,
	}
}

// Address returns host:port of the server.
func (c *Config) Address() string {
	return util.FormatAddr(c.Host, c.Port)
}

// ── Port helpers ─────────────────────────────────────────────────────

// ValidPort reports whether p lies strictly between MinPort and
// MaxPort.
func ValidPort(p int) bool {
	return p > MinPort && p < MaxPort
}

// ParsePort parses a server port typed by the operator.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if !ValidPort(p) {
		return 0, fmt.Errorf("port %d must be greater than %d and less than %d", p, MinPort, MaxPort)
	}
	return p, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the tunnel fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Bridge {
		return c.validateBridge()
	}

	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "pass it as the first argument or set SMTPC_HOST",
		}
	}
	if !ValidPort(c.Port) {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: fmt.Sprintf("must be greater than %d and less than %d", MinPort, MaxPort),
			Hint:    fmt.Sprintf("the server normally listens on %d", DefaultPort),
		}
	}
	if c.Listen {
		return &ncerr.ConfigError{
			Field:   "listen",
			Message: "listening is only supported in bridge mode",
			Hint:    "add --bridge --upstream host:port",
		}
	}
	return c.validateCommon()
}

func (c *Config) validateBridge() error {
	if !c.Listen || c.LocalPort == 0 {
		return &ncerr.ConfigError{
			Field:   "listen",
			Message: "bridge mode requires -l -p <port>",
			Hint:    "e.g. smtpc --bridge -l -p 50000 --upstream mail.example.com:25",
		}
	}
	if c.LocalPort < 1 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{Field: "local-port", Value: c.LocalPort, Message: "out of range 1-65535"}
	}
	if c.Upstream == "" {
		return &ncerr.ConfigError{
			Field:   "upstream",
			Message: "bridge mode requires an upstream SMTP server",
			Hint:    "use --upstream host[:port]",
		}
	}
	if _, _, err := util.SplitAddr(c.Upstream, DefaultUpstreamPort); err != nil {
		return &ncerr.ConfigError{Field: "upstream", Value: c.Upstream, Message: err.Error()}
	}
	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.ConnectRetries < 0 {
		return &ncerr.ConfigError{Field: "retries", Value: c.ConnectRetries, Message: "must not be negative"}
	}
	if c.MaxDataAttempts < 0 {
		return &ncerr.ConfigError{Field: "max-data-retries", Value: c.MaxDataAttempts, Message: "must not be negative"}
	}
	if c.MaxFrameSize < 0 {
		return &ncerr.ConfigError{Field: "max-frame-size", Value: c.MaxFrameSize, Message: "must not be negative"}
	}
	return nil
}
