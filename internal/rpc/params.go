package rpc

import (
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Field parsers report the offending parameter by name.

func parseAccountParam(name, value string) (types.AccountID, *RpcError) {
	if value == "" {
		return types.AccountID{}, RpcErrorInvalidParams("Missing required parameter: " + name)
	}
	id, err := types.ParseAccountID(value)
	if err != nil {
		return types.AccountID{}, RpcErrorActMalformed("Malformed " + name + ": " + value)
	}
	return id, nil
}

func parseAssetParam(name, value string) (types.AssetID, *RpcError) {
	if value == "" {
		return types.AssetID{}, RpcErrorInvalidParams("Missing required parameter: " + name)
	}
	id, err := types.ParseAssetID(value)
	if err != nil {
		return types.AssetID{}, RpcErrorInvalidField("Malformed " + name + ": " + value)
	}
	return id, nil
}

func parseHashParam(name, value string) (types.Hash, *RpcError) {
	if value == "" {
		return types.Hash{}, RpcErrorInvalidParams("Missing required parameter: " + name)
	}
	h, err := types.ParseHash(value)
	if err != nil {
		return types.Hash{}, RpcErrorInvalidHash("Malformed " + name + ": " + value)
	}
	return h, nil
}

// optional variants leave the zero value for an empty string

func parseOptionalAccount(name, value string) (types.AccountID, *RpcError) {
	if value == "" {
		return types.AccountID{}, nil
	}
	return parseAccountParam(name, value)
}

func parseOptionalAsset(name, value string) (types.AssetID, *RpcError) {
	if value == "" {
		return types.AssetID{}, nil
	}
	return parseAssetParam(name, value)
}
