package config

import (
	"path/filepath"

	"github.com/LeJamon/goEscrowd/internal/logging"
)

// DefaultConfigFile is the configuration file name looked up in a
// configuration directory.
const DefaultConfigFile = "escrowd.toml"

// Config represents the complete escrowd configuration
type Config struct {
	// 1. RPC server
	Server ServerConfig `toml:"server" mapstructure:"server"`

	// 2. Ledger state storage
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`

	// 3. Relational escrow index
	Index IndexConfig `toml:"index" mapstructure:"index"`

	// 4. Transaction engine
	Ledger LedgerConfig `toml:"ledger" mapstructure:"ledger"`

	// 5. Logging
	Log logging.Config `toml:"log" mapstructure:"log"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPathFromDir returns the path of the configuration file in configDir
func ConfigPathFromDir(configDir string) string {
	return filepath.Join(configDir, DefaultConfigFile)
}

// GetConfigPath returns the path the configuration was loaded from. It is
// empty when only defaults and the environment were used.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// IndexEnabled reports whether the relational escrow index is configured
func (c *Config) IndexEnabled() bool {
	return c.Index.Enabled
}
