package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/pokerrooms/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server   *Settings      `hcl:"server,block"`
	Defaults *game.Settings `hcl:"defaults,block"`
}

// Settings contains server-level configuration
type Settings struct {
	Address             string `hcl:"address,optional"`
	LogLevel            string `hcl:"log_level,optional"`
	EmptyRoomTTLSeconds int    `hcl:"empty_room_ttl_seconds,optional"`
	AIDelayMS           int    `hcl:"ai_delay_ms,optional"`
	Seed                int64  `hcl:"seed,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	defaults := game.DefaultSettings()
	return &Config{
		Server: &Settings{
			Address:             "localhost:8080",
			LogLevel:            "info",
			EmptyRoomTTLSeconds: 300,
			AIDelayMS:           800,
		},
		Defaults: &defaults,
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(src, filename)
}

// ParseConfig decodes HCL source. An omitted address, log level or room TTL
// takes its default; ai_delay_ms and seed default to zero. Boolean room
// rules in a defaults block are taken as written.
func ParseConfig(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diagError(diags))
	}

	d := DefaultConfig()
	if config.Server == nil {
		config.Server = d.Server
	}
	if config.Server.Address == "" {
		config.Server.Address = d.Server.Address
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = d.Server.LogLevel
	}
	if config.Server.EmptyRoomTTLSeconds == 0 {
		config.Server.EmptyRoomTTLSeconds = d.Server.EmptyRoomTTLSeconds
	}
	if config.Defaults == nil {
		config.Defaults = d.Defaults
	} else {
		s := config.Defaults.WithDefaults()
		config.Defaults = &s
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}
	if c.Server.EmptyRoomTTLSeconds < 0 {
		return fmt.Errorf("empty_room_ttl_seconds cannot be negative")
	}
	if c.Server.AIDelayMS < 0 {
		return fmt.Errorf("ai_delay_ms cannot be negative")
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

// EmptyRoomTTL returns how long an abandoned room is kept.
func (c *Config) EmptyRoomTTL() time.Duration {
	return time.Duration(c.Server.EmptyRoomTTLSeconds) * time.Second
}

// AIDelay returns the pause before AI seats act.
func (c *Config) AIDelay() time.Duration {
	return time.Duration(c.Server.AIDelayMS) * time.Millisecond
}

func diagError(diags hcl.Diagnostics) string {
	if len(diags) == 1 {
		return diags[0].Error()
	}
	return diags.Error()
}
