package config

import (
	"testing"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	cfg := &Config{TunnelSpec: "ops@gw.example.com:2200"}
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "gw.example.com" || cfg.TunnelPort != 2200 {
		t.Errorf("unexpected tunnel fields: %+v", cfg)
	}

	empty := &Config{}
	if err := empty.ApplyTunnelSpec(); err != nil || empty.TunnelEnabled {
		t.Errorf("empty spec should leave the tunnel off (err=%v)", err)
	}

	bad := &Config{TunnelSpec: "user@host:0"}
	if err := bad.ApplyTunnelSpec(); err == nil {
		t.Error("expected error for port 0")
	}
}

// ── Ports ────────────────────────────────────────────────────────────

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"50000", 50000, false},
		{" 2049 ", 2049, false},
		{"65534", 65534, false},
		{"2048", 0, true},
		{"65535", 0, true},
		{"80", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePort(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePort(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Host != DefaultHost || cfg.Port != DefaultPort {
		t.Errorf("got %s, want %s:%d", cfg.Address(), DefaultHost, DefaultPort)
	}
	if !cfg.Verbose {
		t.Error("verbose echo should default to on")
	}
	if cfg.LogFile != DefaultLogFile {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Host: "mail.example.com", Port: 50000}
	if got := cfg.Address(); got != "mail.example.com:50000" {
		t.Errorf("Address() = %q", got)
	}
}
