// Package types defines the identity types shared by the ledger,
// transactions and the RPC surface.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidAccountID = errors.New("invalid account ID")
	ErrInvalidAssetID   = errors.New("invalid asset ID")
	ErrInvalidHash      = errors.New("invalid hash")
)

// AccountID identifies an account: RIPEMD160(SHA256(publicKey)).
type AccountID [20]byte

// AssetID identifies a fungible asset (the "mint").
type AssetID [20]byte

// Hash is a 256-bit ledger key or transaction hash.
type Hash [32]byte

func (a AccountID) String() string {
	return base58.Encode(a[:])
}

func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccountID decodes a base58 account ID.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil || len(raw) != len(id) {
		return id, fmt.Errorf("%w: %q", ErrInvalidAccountID, s)
	}
	copy(id[:], raw)
	return id, nil
}

func (a AssetID) String() string {
	return base58.Encode(a[:])
}

func (a AssetID) IsZero() bool {
	return a == AssetID{}
}

func (a AssetID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AssetID) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAssetID decodes a base58 asset ID.
func ParseAssetID(s string) (AssetID, error) {
	var id AssetID
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil || len(raw) != len(id) {
		return id, fmt.Errorf("%w: %q", ErrInvalidAssetID, s)
	}
	copy(id[:], raw)
	return id, nil
}

func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 64 character hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(raw) != len(h) {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	copy(h[:], raw)
	return h, nil
}
