package tx

import "fmt"

// Type represents a transaction type code
type Type uint16

// Transaction type codes
const (
	TypeInvalid Type = 0xFFFF

	// Asset management
	TypeAssetCreate   Type = 1
	TypeHoldingCreate Type = 2
	TypeAssetIssue    Type = 3

	// Swap escrow
	TypeEscrowCreate Type = 10
	TypeEscrowAccept Type = 11
	TypeEscrowCancel Type = 12
)

var typeNames = map[Type]string{
	TypeAssetCreate:   "AssetCreate",
	TypeHoldingCreate: "HoldingCreate",
	TypeAssetIssue:    "AssetIssue",
	TypeEscrowCreate:  "EscrowCreate",
	TypeEscrowAccept:  "EscrowAccept",
	TypeEscrowCancel:  "EscrowCancel",
}

// String returns the transaction type name
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint16(t))
}

// TypeFromName returns the transaction type for a name
func TypeFromName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return TypeInvalid, false
}
