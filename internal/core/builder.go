package core

import (
	"fmt"
	"time"

	"tinytelnet/config"
	"tinytelnet/internal/server"
	"tinytelnet/internal/transport"
	"tinytelnet/tunnel"
	"tinytelnet/util"
)

// Build constructs the appropriate Mode from the given configuration.
// cfg must already be validated; version is reported by sys.version
// and mDNS.
func Build(cfg *config.Config, logger *util.Logger, version string) (Mode, error) {
	switch {
	case cfg.Connect != "":
		return buildConnect(cfg, logger)
	case cfg.Serial != "" || cfg.Console:
		return buildSerial(cfg, logger, version), nil
	default:
		return buildServe(cfg, logger, version), nil
	}
}

// ── mode builders ────────────────────────────────────────────────────

// buildConnect accepts "host" or "host:port"; the port defaults to
// telnet's.
func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	host, port, err := util.SplitPort(cfg.Connect, config.DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("connect address %q: %w", cfg.Connect, err)
	}
	return &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: config.DefaultConnTimeout},
		Address: util.FormatAddr(host, port),
		Logger:  logger,
	}, nil
}

func buildSerial(cfg *config.Config, logger *util.Logger, version string) Mode {
	return &SerialMode{
		Device:   cfg.Serial,
		Baud:     cfg.Baud,
		Options:  serverOptions(cfg),
		Commands: commandSet(cfg, version),
		Logger:   logger,
	}
}

func buildServe(cfg *config.Config, logger *util.Logger, version string) Mode {
	m := &ServeMode{
		Address:     util.FormatAddr(cfg.ListenAddress, cfg.Port),
		AcceptRate:  cfg.AcceptRate,
		AcceptBurst: cfg.AcceptBurst,
		MDNS:        cfg.MDNS,
		MDNSName:    cfg.MDNSName,
		Options:     serverOptions(cfg),
		Commands:    commandSet(cfg, version),
		Logger:      logger,
	}
	if cfg.WebSocketPort > 0 {
		m.WebSocketAddress = util.FormatAddr(cfg.ListenAddress, cfg.WebSocketPort)
		m.WebSocketPath = cfg.WebSocketPath
	}
	if cfg.TunnelEnabled {
		m.Gateway = buildReverseTunnel(cfg)
	}
	return m
}

func buildReverseTunnel(cfg *config.Config) *ReverseTunnel {
	sshCfg := &tunnel.SSHConfig{
		User:                     cfg.TunnelUser,
		Host:                     cfg.TunnelHost,
		Port:                     cfg.TunnelPort,
		KeyPath:                  cfg.SSHKeyPath,
		PromptPass:               cfg.SSHPassword,
		UseAgent:                 cfg.UseSSHAgent,
		StrictHostKey:            cfg.StrictHostKey,
		KnownHosts:               cfg.KnownHostsPath,
		ConnTimeout:              config.DefaultConnTimeout,
		AllowKeyboardInteractive: true,
	}

	var keepAlive time.Duration
	if cfg.KeepAliveInterval > 0 {
		keepAlive = time.Duration(cfg.KeepAliveInterval) * time.Second
	}

	return &ReverseTunnel{
		SSHConfig:         sshCfg,
		RemoteBindAddress: cfg.RemoteBindAddress,
		RemotePort:        cfg.RemotePort,
		KeepAliveInterval: keepAlive,
		AutoReconnect:     cfg.AutoReconnect,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// serverOptions maps the configuration onto server.Options. A zero
// threshold services any pending input at once.
func serverOptions(cfg *config.Config) server.Options {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = -1
	}
	return server.Options{
		MaxLineLength: cfg.MaxLineLength,
		IdleDelay:     cfg.IdleDelay,
		ClientTimeout: cfg.ClientTimeout,
		Threshold:     threshold,
		StaleAfter:    cfg.StaleAfter,
		RoundRobin:    cfg.RoundRobin,
		Welcome:       cfg.Welcome,
	}
}

func commandSet(cfg *config.Config, version string) CommandSet {
	return CommandSet{
		Root:     cfg.Root,
		Stations: cfg.Stations,
		AuditDB:  cfg.AuditDB,
		AuditMax: cfg.AuditMax,
		Version:  version,
	}
}
