package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrowd/internal/logging"
	"github.com/LeJamon/goEscrowd/internal/storage"
)

// ValidateConfig performs comprehensive validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}
	if err := config.Index.Validate(); err != nil {
		return fmt.Errorf("index config validation failed: %w", err)
	}
	if err := config.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger config validation failed: %w", err)
	}
	if err := validateLog(&config.Log); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}

	// Cross-validation checks
	return validateCrossConstraints(config)
}

func validateLog(l *logging.Config) error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("invalid level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid format %q (supported: text, json)", l.Format)
	}
	if l.File != "" && l.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive when a log file is set")
	}
	return nil
}

// validateCrossConstraints checks settings that span sections
func validateCrossConstraints(config *Config) error {
	// A memory ledger restarts empty, so a persistent index would describe
	// escrows that no longer exist.
	if config.Storage.Backend == storage.BackendMemory && config.Index.Enabled {
		return fmt.Errorf("the index cannot be combined with the memory storage backend")
	}
	return nil
}
