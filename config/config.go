// Package config decodes the TOML file backing the compiler's optional
// persistent settings (cache location, default heap size, default
// optimize level). Grounded on the tool config decode pattern the
// commands in this codebase's teacher used: os.Open the path, hand the
// file to a toml.Decoder, decode into a plain struct.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"nickandperla.net/bfc/cache"
)

// ToolConfig is the top-level shape of a bfc.toml file.
type ToolConfig struct {
	DefaultHeapSize int            `toml:"heap_size"`
	DefaultOptimize int            `toml:"optimize"`
	Cache           *cache.Config  `toml:"cache"`
}

// Load reads and decodes the TOML file at path.
func Load(path string) (*ToolConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg ToolConfig
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.DefaultHeapSize == 0 {
		cfg.DefaultHeapSize = 65536
	}
	return &cfg, nil
}
