package main

import (
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/cmd/pokerrooms/shared"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/server"
)

// ServerCmd runs the websocket server. Flags override the config file.
type ServerCmd struct {
	Config   string `short:"c" default:"pokerrooms.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Debug    bool   `help:"Enable debug logging"`
	Seed     *int64 `help:"Deterministic RNG seed (overrides config)"`
}

func (c *ServerCmd) Run(cli *CLI) error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.Seed != nil {
		cfg.Server.Seed = *c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, cli.NoColor)
	if err != nil {
		return err
	}
	logger.Info("Starting room server",
		"addr", cfg.Server.Address,
		"seed", cfg.Server.Seed,
		"emptyRoomTTL", cfg.EmptyRoomTTL(),
		"aiDelay", cfg.AIDelay(),
		"stakes", []int{cfg.Defaults.SmallBlind, cfg.Defaults.BigBlind})

	registry := room.NewRegistry(room.Options{
		Clock:        quartz.NewReal(),
		Logger:       logger,
		Seed:         cfg.Server.Seed,
		AIDelay:      cfg.AIDelay(),
		EmptyRoomTTL: cfg.EmptyRoomTTL(),
		Defaults:     *cfg.Defaults,
	})

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()
	return server.NewServer(cfg.Server.Address, registry, logger).Run(ctx)
}
