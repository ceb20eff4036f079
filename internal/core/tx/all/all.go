// Package all imports all transaction sub-packages to trigger their init() registrations.
// Import this package in the main application to ensure all transaction types are registered.
package all

import (
	_ "github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	_ "github.com/LeJamon/goEscrowd/internal/core/tx/mint"
)
