package entry

import (
	"fmt"
)

// Type represents a ledger entry type
type Type uint16

// All known ledger entry types
const (
	TypeAccountRoot Type = 0x0061 // Account objects
	TypeHolding     Type = 0x0068 // Asset balance held by an account
	TypeAsset       Type = 0x006d // Fungible asset definitions
	TypeEscrow      Type = 0x0075 // Swap escrow records
	TypeVault       Type = 0x0056 // Escrow custody holdings
)

// String returns the canonical name of the entry type.
func (t Type) String() string {
	switch t {
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeHolding:
		return "Holding"
	case TypeAsset:
		return "Asset"
	case TypeEscrow:
		return "Escrow"
	case TypeVault:
		return "Vault"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(t))
	}
}

// TypeFromName resolves an entry type from its canonical name.
func TypeFromName(name string) (Type, bool) {
	for _, t := range []Type{TypeAccountRoot, TypeHolding, TypeAsset, TypeEscrow, TypeVault} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}
