package rpc

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
)

// AccountInfoMethod handles the account_info RPC method
type AccountInfoMethod struct {
	svc LedgerService
}

func (m *AccountInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	account, rpcErr := parseAccountParam("account", request.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.GetAccountInfo(account)
	if errors.Is(err, service.ErrNotFound) {
		return nil, RpcErrorActNotFound("Account not found.")
	}
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	data := map[string]interface{}{
		"Account":    info.Account.String(),
		"Balance":    info.Balance,
		"Sequence":   info.Sequence,
		"OwnerCount": info.OwnerCount,
		"Reserve":    info.Reserve,
	}
	if !info.PreviousTxnID.IsZero() {
		data["PreviousTxnID"] = info.PreviousTxnID.String()
	}
	return map[string]interface{}{
		"account_data": data,
	}, nil
}

// HoldingInfoMethod handles the holding_info RPC method
type HoldingInfoMethod struct {
	svc LedgerService
}

func (m *HoldingInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
		Asset   string `json:"asset"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAccountParam("account", request.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAssetParam("asset", request.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.GetHoldingInfo(owner, asset)
	if errors.Is(err, service.ErrNotFound) {
		return nil, RpcErrorEntryNotFound("Holding not found.")
	}
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	return map[string]interface{}{
		"index":   info.Key.String(),
		"holding": holdingJSON(info.Holding, info.Asset),
		"asset":   assetJSON(info.Asset),
	}, nil
}

// AssetInfoMethod handles the asset_info RPC method
type AssetInfoMethod struct {
	svc LedgerService
}

func (m *AssetInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Asset string `json:"asset"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseAssetParam("asset", request.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}

	def, err := m.svc.GetAsset(id)
	if errors.Is(err, service.ErrNotFound) {
		return nil, RpcErrorEntryNotFound("Asset not found.")
	}
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"asset": assetJSON(def),
	}, nil
}

func assetJSON(a *sle.Asset) map[string]interface{} {
	return map[string]interface{}{
		"ID":       a.ID.String(),
		"Issuer":   a.Issuer.String(),
		"Code":     a.Code,
		"Decimals": a.Decimals,
		"Supply":   FormatAmount(a.Supply, a.Decimals),
	}
}

func holdingJSON(h *sle.Holding, a *sle.Asset) map[string]interface{} {
	out := map[string]interface{}{
		"Owner":   h.Owner.String(),
		"Asset":   h.Asset.String(),
		"Balance": FormatAmount(h.Balance, a.Decimals),
	}
	if h.IsVault() {
		out["Custodian"] = h.Custodian.String()
	}
	return out
}
