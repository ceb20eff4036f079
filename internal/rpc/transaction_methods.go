package rpc

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// DefaultAccountTxLimit caps account_tx when the request sets no limit
const DefaultAccountTxLimit = 200

// SubmitMethod handles the submit RPC method. The transaction is given as
// a signed JSON object in tx_json.
type SubmitMethod struct {
	svc LedgerService
}

func (m *SubmitMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TxJSON json.RawMessage `json:"tx_json"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	if len(request.TxJSON) == 0 {
		return nil, RpcErrorInvalidParams("Missing required parameter: tx_json")
	}

	res, err := m.svc.SubmitJSON(request.TxJSON)
	switch {
	case errors.Is(err, service.ErrServiceStopped):
		return nil, RpcErrorShutDown()
	case errors.Is(err, tx.ErrUnknownTransactionType):
		return nil, RpcErrorInvalidField("Unknown TransactionType")
	case err != nil:
		return nil, RpcErrorInvalidParams("Invalid tx_json: " + err.Error())
	}

	result := map[string]interface{}{
		"engine_result":         res.Result.String(),
		"engine_result_code":    int(res.Result),
		"engine_result_message": res.Message,
		"applied":               res.Applied,
		"tx_json":               request.TxJSON,
	}
	if !res.Hash.IsZero() {
		result["hash"] = res.Hash.String()
	}
	if res.Metadata != nil {
		result["meta"] = res.Metadata
	}
	return result, nil
}

// TxMethod handles the tx RPC method, served from the escrow index
type TxMethod struct {
	svc LedgerService
}

func (m *TxMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Transaction string `json:"transaction"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	hash, rpcErr := parseHashParam("transaction", request.Transaction)
	if rpcErr != nil {
		return nil, rpcErr
	}

	row, err := m.svc.GetTransaction(ctx.Context, hash)
	switch {
	case errors.Is(err, service.ErrIndexDisabled):
		return nil, RpcErrorNotEnabled("Transaction history requires the escrow index.")
	case errors.Is(err, relationaldb.ErrTransactionNotFound):
		return nil, RpcErrorTxnNotFound("Transaction not found.")
	case err != nil:
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"transaction": row,
	}, nil
}

// AccountTxMethod handles the account_tx RPC method
type AccountTxMethod struct {
	svc LedgerService
}

func (m *AccountTxMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
		Limit   int    `json:"limit,omitempty"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	account, rpcErr := parseAccountParam("account", request.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if request.Limit < 0 {
		return nil, RpcErrorInvalidField("limit cannot be negative")
	}
	limit := request.Limit
	if limit == 0 || limit > DefaultAccountTxLimit {
		limit = DefaultAccountTxLimit
	}

	rows, err := m.svc.GetAccountTransactions(ctx.Context, account, limit)
	switch {
	case errors.Is(err, service.ErrIndexDisabled):
		return nil, RpcErrorNotEnabled("Transaction history requires the escrow index.")
	case err != nil:
		return nil, RpcErrorInternal(err.Error())
	}
	if rows == nil {
		rows = []relationaldb.TransactionRow{}
	}
	return map[string]interface{}{
		"account":      account.String(),
		"limit":        limit,
		"transactions": rows,
	}, nil
}
