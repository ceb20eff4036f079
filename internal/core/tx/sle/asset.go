package sle

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// MaxAssetDecimals bounds the decimal places an asset may declare.
const MaxAssetDecimals = 18

// Asset defines a fungible asset. Only the issuer may mint it.
type Asset struct {
	ID            types.AssetID   `codec:"id"`
	Issuer        types.AccountID `codec:"issuer"`
	Code          string          `codec:"code"`
	Decimals      uint8           `codec:"decimals"`
	Supply        uint64          `codec:"supply"`
	PreviousTxnID types.Hash      `codec:"prev_txn"`
}

func (a *Asset) EntryType() entry.Type { return entry.TypeAsset }

func (a *Asset) SetPreviousTxnID(h types.Hash) { a.PreviousTxnID = h }

func (a *Asset) Fields() map[string]any {
	return map[string]any{
		"AssetID":       a.ID.String(),
		"Issuer":        a.Issuer.String(),
		"Code":          a.Code,
		"Decimals":      a.Decimals,
		"Supply":        a.Supply,
		"PreviousTxnID": a.PreviousTxnID.String(),
	}
}

// ParseAsset decodes an Asset entry.
func ParseAsset(data []byte) (*Asset, error) {
	a := &Asset{}
	if err := decodeInto(data, entry.TypeAsset, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SerializeAsset encodes an Asset entry.
func SerializeAsset(a *Asset) ([]byte, error) {
	return Serialize(a)
}
