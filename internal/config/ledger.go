package config

import (
	"fmt"

	"github.com/LeJamon/goEscrowd/internal/core/tx"
)

// LedgerConfig represents the [ledger] section
type LedgerConfig struct {
	// ReserveBase is the balance an account keeps with no owned objects
	ReserveBase uint64 `toml:"reserve_base" mapstructure:"reserve_base"`

	// ReserveIncrement is kept per owned object (holdings, escrows, vaults)
	ReserveIncrement uint64 `toml:"reserve_increment" mapstructure:"reserve_increment"`

	// SkipSignatureVerification accepts unsigned transactions. For
	// standalone testing only.
	SkipSignatureVerification bool `toml:"skip_signature_verification" mapstructure:"skip_signature_verification"`
}

// Validate validates the ledger configuration
func (l *LedgerConfig) Validate() error {
	if l.ReserveBase == 0 {
		return fmt.Errorf("reserve_base must be positive")
	}
	return nil
}

// EngineConfig converts the section to the engine's configuration
func (l *LedgerConfig) EngineConfig() tx.EngineConfig {
	return tx.EngineConfig{
		ReserveBase:               l.ReserveBase,
		ReserveIncrement:          l.ReserveIncrement,
		SkipSignatureVerification: l.SkipSignatureVerification,
	}
}
