package core

import (
	"fmt"

	"smtpc/config"
	"smtpc/internal/transport"
	"smtpc/util"
)

// Build constructs the Mode selected by cfg.  cfg must already be
// validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Bridge {
		return buildBridge(cfg, logger)
	}
	return buildConnect(cfg, logger), nil
}

func buildConnect(cfg *config.Config, logger *util.Logger) Mode {
	return &ConnectMode{
		Dialer:          buildDialer(cfg, logger),
		Address:         cfg.Address(),
		Logger:          logger,
		Retries:         cfg.ConnectRetries,
		MaxFrameSize:    cfg.MaxFrameSize,
		MaxDataAttempts: cfg.MaxDataAttempts,
		Echo:            cfg.Echo,
	}
}

func buildBridge(cfg *config.Config, logger *util.Logger) (Mode, error) {
	host, port, err := util.SplitAddr(cfg.Upstream, config.DefaultUpstreamPort)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	return &BridgeMode{
		Address:      fmt.Sprintf(":%d", cfg.LocalPort),
		Upstream:     util.FormatAddr(host, port),
		Dialer:       buildDialer(cfg, logger),
		KeepOpen:     cfg.KeepOpen,
		MaxFrameSize: cfg.MaxFrameSize,
		Logger:       logger,
	}, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}
