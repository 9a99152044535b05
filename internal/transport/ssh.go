package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "smtpc/internal/errors"
	"smtpc/util"
)

// SSHConfig describes the SSH gateway that connections are routed
// through.
type SSHConfig struct {
	User          string
	Host          string
	Port          int // default 22
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration // default 30s

	// ReadSecret prompts for passwords and key passphrases.  Defaults
	// to TerminalSecret.
	ReadSecret SecretReader
}

func (c *SSHConfig) secret() SecretReader {
	if c.ReadSecret != nil {
		return c.ReadSecret
	}
	return TerminalSecret
}

// SSHDialer routes connections through an SSH gateway.  The gateway is
// connected lazily on the first Dial and shared by later ones until
// Close.
type SSHDialer struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer returns a dialer for cfg.  Nothing is dialed yet.
func NewSSHDialer(cfg *SSHConfig, logger *util.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHDialer{config: cfg, logger: logger}
}

// connect establishes the gateway session if there is none.
func (d *SSHDialer) connect(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client, nil
	}

	cfg := d.config
	auth, err := BuildAuthMethods(cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", cfg.Host, cfg.Port, err)
	}
	hk, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", cfg.Host, cfg.Port, err)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d.logger.Verbose("establishing SSH tunnel to %s@%s", cfg.User, addr)

	nd := net.Dialer{Timeout: cfg.ConnTimeout}
	tcpConn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ncerr.Wrap("dial", addr, err)
	}

	// ClientConfig.Timeout only covers ssh.Dial, so bound the
	// handshake on the raw connection instead.
	if cfg.ConnTimeout > 0 {
		tcpConn.SetDeadline(time.Now().Add(cfg.ConnTimeout)) //nolint:errcheck
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hk,
		Timeout:         cfg.ConnTimeout,
	})
	if err != nil {
		tcpConn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			err = fmt.Errorf("%w: %v", ncerr.ErrAuthFailed, err)
		}
		return nil, ncerr.WrapSSH("handshake", cfg.Host, cfg.Port, err)
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	d.client = ssh.NewClient(sshConn, chans, reqs)
	d.logger.Verbose("SSH tunnel established")

	go d.monitor(d.client)
	return d.client, nil
}

// monitor forgets the client once its connection ends so the next
// Dial reconnects.
func (d *SSHDialer) monitor(c *ssh.Client) {
	err := c.Wait()

	d.mu.Lock()
	if d.client == c {
		d.client = nil
	}
	d.mu.Unlock()

	d.logger.Debug("SSH tunnel closed: %v", err)
}

// Dial connects to address from the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("tunnel: dialing %s %s", network, address)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("tunnel dial %s: %w", address, err)
	}
	return conn, nil
}

// Close tears down the gateway session.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
