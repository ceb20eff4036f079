package rpc

import (
	"encoding/json"
)

// ServerInfoMethod handles the server_info RPC method
type ServerInfoMethod struct {
	svc LedgerService
}

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	info := m.svc.GetServerInfo(ctx.Context)

	out := map[string]interface{}{
		"uptime":        int64(info.Uptime.Seconds()),
		"reserve_base":  info.ReserveBase,
		"reserve_inc":   info.ReserveIncrement,
		"index_enabled": info.IndexEnabled,
		"cache_hits":    info.CacheHits,
		"cache_misses":  info.CacheMisses,
		"subscribers":   m.svc.Publisher().SubscriberCount(),
	}
	if info.IndexEnabled {
		out["index_pending"] = info.IndexPending
		out["open_escrows"] = info.OpenEscrows
	}
	return map[string]interface{}{
		"info": out,
	}, nil
}

// PingMethod handles the ping RPC method
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{}, nil
}

// registerAllMethods registers every RPC method
func (s *Server) registerAllMethods() {
	// Server Information Methods
	s.registry.Register("server_info", &ServerInfoMethod{svc: s.svc})
	s.registry.Register("ping", &PingMethod{})

	// Account Methods
	s.registry.Register("account_info", &AccountInfoMethod{svc: s.svc})
	s.registry.Register("holding_info", &HoldingInfoMethod{svc: s.svc})
	s.registry.Register("asset_info", &AssetInfoMethod{svc: s.svc})
	s.registry.Register("account_tx", &AccountTxMethod{svc: s.svc})

	// Escrow Methods
	s.registry.Register("escrow_info", &EscrowInfoMethod{svc: s.svc})
	s.registry.Register("escrow_list", &EscrowListMethod{svc: s.svc})
	s.registry.Register("escrow_derive", &EscrowDeriveMethod{})

	// Transaction Methods
	s.registry.Register("submit", &SubmitMethod{svc: s.svc})
	s.registry.Register("tx", &TxMethod{svc: s.svc})

	// Admin methods
	s.registry.Register("fund", &FundMethod{svc: s.svc})
}
