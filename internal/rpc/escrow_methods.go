package rpc

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// escrowLocator names an escrow either by address or by its natural key
type escrowLocator struct {
	Escrow       string `json:"escrow,omitempty"`
	Seller       string `json:"seller,omitempty"`
	OfferAsset   string `json:"offer_asset,omitempty"`
	RequestAsset string `json:"request_asset,omitempty"`
}

func (l *escrowLocator) naturalKey() (types.AccountID, types.AssetID, types.AssetID, *RpcError) {
	seller, rpcErr := parseAccountParam("seller", l.Seller)
	if rpcErr != nil {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, rpcErr
	}
	offer, rpcErr := parseAssetParam("offer_asset", l.OfferAsset)
	if rpcErr != nil {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, rpcErr
	}
	request, rpcErr := parseAssetParam("request_asset", l.RequestAsset)
	if rpcErr != nil {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, rpcErr
	}
	return seller, offer, request, nil
}

func (l *escrowLocator) address() (types.Hash, *RpcError) {
	if l.Escrow != "" {
		return parseHashParam("escrow", l.Escrow)
	}
	seller, offer, request, rpcErr := l.naturalKey()
	if rpcErr != nil {
		return types.Hash{}, rpcErr
	}
	return service.DeriveEscrow(seller, offer, request).Escrow, nil
}

// EscrowDeriveMethod handles the escrow_derive RPC method. It computes the
// escrow and vault addresses without touching the ledger.
type EscrowDeriveMethod struct{}

func (m *EscrowDeriveMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request escrowLocator
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	seller, offer, req, rpcErr := request.naturalKey()
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr := service.DeriveEscrow(seller, offer, req)
	return map[string]interface{}{
		"escrow": addr.Escrow.String(),
		"vault":  addr.Vault.String(),
	}, nil
}

// EscrowInfoMethod handles the escrow_info RPC method
type EscrowInfoMethod struct {
	svc LedgerService
}

func (m *EscrowInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request escrowLocator
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	key, rpcErr := request.address()
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.GetEscrowInfo(ctx.Context, key)
	if errors.Is(err, service.ErrNotFound) {
		return nil, RpcErrorEntryNotFound("Escrow not found.")
	}
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	result := map[string]interface{}{
		"index":         info.Key.String(),
		"node":          escrowJSON(info.Record, info.OfferAsset, info.RequestAsset),
		"vault_balance": FormatAmount(info.VaultBalance, info.OfferAsset.Decimals),
	}
	if info.History != nil {
		result["history"] = info.History
	}
	return result, nil
}

func escrowJSON(e *sle.Escrow, offer, request *sle.Asset) map[string]interface{} {
	out := map[string]interface{}{
		"Seller":        e.Seller.String(),
		"OfferAsset":    e.OfferAsset.String(),
		"RequestAsset":  e.RequestAsset.String(),
		"OfferAmount":   FormatAmount(e.OfferAmount, offer.Decimals),
		"RequestAmount": FormatAmount(e.RequestAmount, request.Decimals),
		"OfferCode":     offer.Code,
		"RequestCode":   request.Code,
		"Status":        string(e.Status),
		"Vault":         e.Vault.String(),
		"CreateTxnID":   e.CreateTxnID.String(),
		"PreviousTxnID": e.PreviousTxnID.String(),
	}
	if e.Outcome != sle.OutcomeNone {
		out["Outcome"] = string(e.Outcome)
	}
	if !e.Buyer.IsZero() {
		out["Buyer"] = e.Buyer.String()
	}
	return out
}

// EscrowListMethod handles the escrow_list RPC method
type EscrowListMethod struct {
	svc LedgerService
}

func (m *EscrowListMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Seller       string `json:"seller,omitempty"`
		Buyer        string `json:"buyer,omitempty"`
		OfferAsset   string `json:"offer_asset,omitempty"`
		RequestAsset string `json:"request_asset,omitempty"`
		Status       string `json:"status,omitempty"`
		Limit        int    `json:"limit,omitempty"`
		Offset       int    `json:"offset,omitempty"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	var (
		filter relationaldb.EscrowFilter
		rpcErr *RpcError
	)
	if filter.Seller, rpcErr = parseOptionalAccount("seller", request.Seller); rpcErr != nil {
		return nil, rpcErr
	}
	if filter.Buyer, rpcErr = parseOptionalAccount("buyer", request.Buyer); rpcErr != nil {
		return nil, rpcErr
	}
	if filter.OfferAsset, rpcErr = parseOptionalAsset("offer_asset", request.OfferAsset); rpcErr != nil {
		return nil, rpcErr
	}
	if filter.RequestAsset, rpcErr = parseOptionalAsset("request_asset", request.RequestAsset); rpcErr != nil {
		return nil, rpcErr
	}
	switch sle.EscrowStatus(request.Status) {
	case "", sle.EscrowOpen, sle.EscrowClosed:
		filter.Status = request.Status
	default:
		return nil, RpcErrorInvalidField("Invalid status: " + request.Status)
	}
	if request.Limit < 0 || request.Offset < 0 {
		return nil, RpcErrorInvalidField("limit and offset cannot be negative")
	}
	filter.Limit = request.Limit
	filter.Offset = request.Offset

	list, err := m.svc.ListEscrows(ctx.Context, filter)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	escrows := make([]map[string]interface{}, 0, len(list))
	for _, e := range list {
		item := map[string]interface{}{
			"index":         e.Key.String(),
			"Seller":        e.Seller.String(),
			"OfferAsset":    e.OfferAsset.String(),
			"RequestAsset":  e.RequestAsset.String(),
			"OfferAmount":   strconv.FormatUint(e.OfferAmount, 10),
			"RequestAmount": strconv.FormatUint(e.RequestAmount, 10),
			"Status":        e.Status,
			"CreateTxnID":   e.CreateTxnID.String(),
		}
		if e.Outcome != "" {
			item["Outcome"] = e.Outcome
		}
		if !e.Buyer.IsZero() {
			item["Buyer"] = e.Buyer.String()
		}
		escrows = append(escrows, item)
	}
	return map[string]interface{}{
		"escrows": escrows,
	}, nil
}
