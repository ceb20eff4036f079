package keylet

import (
	"encoding/binary"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	crypto "github.com/LeJamon/goEscrowd/internal/crypto/common"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Space identifiers for keylet generation. Each entry type hashes into
// its own space so keys of different types can never collide.
const (
	spaceAccount uint16 = 'a' // Account root
	spaceAssetID uint16 = 'M' // Asset identity (not a ledger entry)
	spaceAsset   uint16 = 'm' // Asset definition
	spaceHolding uint16 = 'h' // Holding
	spaceEscrow  uint16 = 'u' // Escrow record
	spaceVault   uint16 = 'V' // Escrow vault
)

// Seed tags mixed into escrow and vault derivation.
var (
	escrowSeed = []byte("escrow")
	vaultSeed  = []byte("vault")
)

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  [32]byte
}

// Hash returns the key as a types.Hash.
func (k Keylet) Hash() types.Hash {
	return types.Hash(k.Key)
}

// Matches reports whether a caller supplied key addresses this keylet.
func (k Keylet) Matches(supplied types.Hash) bool {
	return k.Key == [32]byte(supplied)
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) [32]byte {
	// Prepend the space identifier as a 2-byte big-endian value
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes)
	inputs = append(inputs, data...)

	return crypto.Sha512Half(inputs...)
}

// Account returns the keylet for an account root entry.
func Account(accountID types.AccountID) Keylet {
	return Keylet{
		Type: entry.TypeAccountRoot,
		Key:  indexHash(spaceAccount, accountID[:]),
	}
}

// AssetID derives the identity of the asset an issuer publishes under code.
func AssetID(issuer types.AccountID, code string) types.AssetID {
	h := indexHash(spaceAssetID, issuer[:], []byte(code))
	var id types.AssetID
	copy(id[:], h[:20])
	return id
}

// Asset returns the keylet for an asset definition entry.
func Asset(assetID types.AssetID) Keylet {
	return Keylet{
		Type: entry.TypeAsset,
		Key:  indexHash(spaceAsset, assetID[:]),
	}
}

// Holding returns the keylet for the holding an owner keeps for an asset.
// An owner has at most one holding per asset.
func Holding(owner types.AccountID, assetID types.AssetID) Keylet {
	return Keylet{
		Type: entry.TypeHolding,
		Key:  indexHash(spaceHolding, owner[:], assetID[:]),
	}
}

// Escrow returns the keylet for the escrow record a seller opens to swap
// offerAsset for requestAsset. The triple is the record's natural key.
func Escrow(seller types.AccountID, offerAsset, requestAsset types.AssetID) Keylet {
	return Keylet{
		Type: entry.TypeEscrow,
		Key:  indexHash(spaceEscrow, escrowSeed, seller[:], offerAsset[:], requestAsset[:]),
	}
}

// Vault returns the keylet for the custody holding of an escrow record.
func Vault(escrowKey [32]byte) Keylet {
	return Keylet{
		Type: entry.TypeVault,
		Key:  indexHash(spaceVault, vaultSeed, escrowKey[:]),
	}
}
