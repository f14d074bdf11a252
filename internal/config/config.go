// Package config loads the CLI configuration.
package config

import (
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/pkg/packet"
)

// Config is the root configuration for the strix CLI.
type Config struct {
	Dissect DissectConfig `mapstructure:"dissect"`
	Logger  *log.Config   `mapstructure:"logger"`
}

// DissectConfig controls the decode walk and the dump output.
type DissectConfig struct {
	// MaxDepth bounds the number of layers decoded per frame.
	MaxDepth int `mapstructure:"max_depth"`

	// SnapLen truncates each frame before dissection; 0 keeps it whole.
	SnapLen int `mapstructure:"snap_len"`

	// Filter is a cBPF program in the numeric form emitted by
	// tcpdump -ddd, applied before dissection. Empty means no filter.
	Filter string `mapstructure:"filter"`

	// DumpPayload prints a hex dump of the undecoded trailing bytes.
	DumpPayload bool `mapstructure:"dump_payload"`
}

func applyDefaults(cfg *Config) {
	if cfg.Dissect.MaxDepth <= 0 {
		cfg.Dissect.MaxDepth = packet.DefaultMaxDepth
	}
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultConfig()
	}
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
