package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SMTPC_ prefix.  Boolean values
// accept "1", "true", "yes" and "0", "false", "no" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SMTPC_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("SMTPC_PORT"); v > 0 {
		cfg.Port = v
		cfg.PortGiven = true
	}
	if v := envInt("SMTPC_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v, ok := envIntSet("SMTPC_RETRIES"); ok {
		cfg.ConnectRetries = v
	}
	if v := envInt("SMTPC_MAX_FRAME_SIZE"); v > 0 {
		cfg.MaxFrameSize = v
	}
	if v, ok := envIntSet("SMTPC_MAX_DATA_RETRIES"); ok {
		cfg.MaxDataAttempts = v
	}

	// SSH tunnel
	if v := os.Getenv("SMTPC_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("SMTPC_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SMTPC_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SMTPC_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("SMTPC_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("SMTPC_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Bridge
	if envBool("SMTPC_BRIDGE") {
		cfg.Bridge = true
	}
	if v := os.Getenv("SMTPC_UPSTREAM"); v != "" {
		cfg.Upstream = v
	}
	if envBool("SMTPC_KEEP_OPEN") {
		cfg.KeepOpen = true
	}

	// Output
	if v, ok := envBoolSet("SMTPC_VERBOSE"); ok {
		cfg.Verbose = v
	}
	if v := envInt("SMTPC_LOG_LEVEL"); v > 0 {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SMTPC_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if envBool("SMTPC_NO_BANNER") {
		cfg.NoBanner = true
	}
	if envBool("SMTPC_ECHO") {
		cfg.Echo = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	n, _ := envIntSet(key)
	return n
}

func envIntSet(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v, ok := envBoolSet(key)
	return ok && v
}

func envBoolSet(key string) (value, ok bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
