package crypto

import (
	"crypto/rand"
	"errors"
	"io"
)

// SeedSize is the size of a freshly generated account seed.
const SeedSize = 16

// ErrRandomGeneration is returned when random number generation fails.
var ErrRandomGeneration = errors.New("failed to generate random bytes")

// GenerateSeed returns SeedSize bytes read from the system CSPRNG.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, ErrRandomGeneration
	}
	return seed, nil
}
