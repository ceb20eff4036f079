package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ESCROWD_STORAGE_BACKEND
const EnvPrefix = "ESCROWD"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (escrowd.toml), when configPath is not empty
// 3. Environment variables (ESCROWD_ prefix)
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		if err := loadMainConfig(v, configPath); err != nil {
			return nil, fmt.Errorf("failed to load main config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = configPath

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadMainConfig loads the main configuration file
func loadMainConfig(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// LoadConfigFromDir loads escrowd.toml from configDir
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathFromDir(configDir))
}

// LoadDefaultConfig returns the defaults with environment overrides applied
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig("")
}

// ReloadConfig reloads configuration from the same path
func ReloadConfig(existingConfig *Config) (*Config, error) {
	return LoadConfig(existingConfig.GetConfigPath())
}

// SaveExampleConfig writes an example configuration file
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range generateExampleConfig() {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}

// generateExampleConfig generates example configuration values
func generateExampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"server.listen":     "127.0.0.1:5005",
		"server.rate_limit": 50,
		"server.rate_burst": 100,
		"server.metrics":    true,

		"storage.backend":     "pebble",
		"storage.path":        "/var/lib/escrowd/db",
		"storage.compression": "lz4",
		"storage.cache_size":  16384,

		"index.enabled":  true,
		"index.driver":   "sqlite",
		"index.database": "/var/lib/escrowd/index.db",

		"ledger.reserve_base":      200,
		"ledger.reserve_increment": 50,

		"log.level":  "info",
		"log.format": "text",
		"log.file":   "/var/log/escrowd/escrowd.log",
	}
}
