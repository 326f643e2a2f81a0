// Package config loads the relay's TOML settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/krelay/internal/logging"
	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/frame"
)

// Config is the resolved relay configuration.
type Config struct {
	DefinitionsPath string
	LogLevel        string
	MaxPacketBytes  int
	DropKinds       []protocol.Kind
	DropUnknown     bool
	// Mute lists TEXT senders the mute plugin drops.
	Mute []string
}

// relay.toml key mapping.
type fileConfig struct {
	Definitions    string   `toml:"definitions"`
	LogLevel       string   `toml:"log_level"`
	MaxPacketBytes int      `toml:"max_packet_bytes"`
	DropKinds      []string `toml:"drop_kinds"`
	DropUnknown    bool     `toml:"drop_unknown"`
	Mute           []string `toml:"mute"`
}

func Default() Config {
	return Config{
		DefinitionsPath: "packets.toml",
		LogLevel:        "info",
		MaxPacketBytes:  frame.DefaultLimits().MaxPacketBytes,
	}
}

// Limits returns the framing limits implied by cfg.
func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxPacketBytes: c.MaxPacketBytes}
}

// Load reads path over the defaults. A relative definitions path resolves
// against the directory holding the config file.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load relay config: %w", err)
	}

	if meta.IsDefined("definitions") {
		cfg.DefinitionsPath = strings.TrimSpace(raw.Definitions)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("max_packet_bytes") {
		cfg.MaxPacketBytes = raw.MaxPacketBytes
	}
	if meta.IsDefined("drop_unknown") {
		cfg.DropUnknown = raw.DropUnknown
	}
	for _, name := range raw.Mute {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Mute = append(cfg.Mute, name)
		}
	}
	for _, name := range raw.DropKinds {
		kind, ok := protocol.ParseKind(name)
		if !ok || !kind.Valid() {
			return Config{}, fmt.Errorf("load relay config: unknown drop kind %q", name)
		}
		cfg.DropKinds = append(cfg.DropKinds, kind)
	}

	if cfg.DefinitionsPath == "" {
		return Config{}, fmt.Errorf("load relay config: definitions path is required")
	}
	if !filepath.IsAbs(cfg.DefinitionsPath) {
		cfg.DefinitionsPath = filepath.Join(filepath.Dir(path), cfg.DefinitionsPath)
	}
	if _, err := os.Stat(cfg.DefinitionsPath); err != nil {
		return Config{}, fmt.Errorf("load relay config: definitions %q: %w", raw.Definitions, err)
	}
	if cfg.MaxPacketBytes < frame.HeaderLen {
		return Config{}, fmt.Errorf(
			"load relay config: max_packet_bytes %d below packet header size %d",
			cfg.MaxPacketBytes,
			frame.HeaderLen,
		)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return Config{}, fmt.Errorf("load relay config: unknown log level %q", cfg.LogLevel)
	}
	return cfg, nil
}
