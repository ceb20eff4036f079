package rpc

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
)

// FundMethod handles the fund RPC method. It credits native balance to an
// account, creating the account root when needed. Admin only.
type FundMethod struct {
	svc LedgerService
}

func (m *FundMethod) RequiredRole() Role {
	return RoleAdmin
}

func (m *FundMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
		Amount  string `json:"amount"`
	}
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}
	account, rpcErr := parseAccountParam("account", request.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, err := strconv.ParseUint(request.Amount, 10, 64)
	if err != nil {
		return nil, RpcErrorInvalidField("Malformed amount: " + request.Amount)
	}

	switch err := m.svc.Fund(account, amount); {
	case errors.Is(err, service.ErrInvalidFundTotal):
		return nil, RpcErrorInvalidField(err.Error())
	case errors.Is(err, service.ErrServiceStopped):
		return nil, RpcErrorShutDown()
	case err != nil:
		return nil, RpcErrorInternal(err.Error())
	}

	info, err := m.svc.GetAccountInfo(account)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"account": account.String(),
		"balance": info.Balance,
	}, nil
}
