package mint

import (
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
)

func assetResult(err error) tx.Result {
	switch {
	case err == nil:
		return tx.TesSUCCESS
	case errors.Is(err, asset.ErrAssetNotFound):
		return tx.TecNO_ISSUER
	case errors.Is(err, asset.ErrHoldingExists):
		return tx.TecDUPLICATE
	case errors.Is(err, asset.ErrUnauthorized):
		return tx.TecNO_PERMISSION
	case errors.Is(err, asset.ErrWrongAsset):
		return tx.TecBAD_MINT
	case errors.Is(err, asset.ErrOverflow):
		return tx.TecINTERNAL
	default:
		return tx.TefINTERNAL
	}
}
