package rpc

// RpcError represents an RPC error with code and message
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Error codes. The numbering follows the XRPL JSON-RPC codes where a
// counterpart exists.
const (
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	RpcMISSING_COMMAND = 2
	RpcNO_PERMISSION   = 6
	RpcSLOW_DOWN       = 7
	RpcSHUT_DOWN       = 11

	RpcACT_NOT_FOUND = 19
	RpcTXN_NOT_FOUND = 24
	RpcNOT_ENABLED   = 31

	RpcACT_MALFORMED   = 50
	RpcINVALID_FIELD   = 43
	RpcINVALID_HASH    = 44
	RpcENTRY_NOT_FOUND = 92
)

// NewRpcError builds an error
func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{
		Code:        code,
		ErrorString: errorString,
		Message:     message,
	}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}

func RpcErrorActNotFound(message string) *RpcError {
	return NewRpcError(RpcACT_NOT_FOUND, "actNotFound", message)
}

func RpcErrorActMalformed(message string) *RpcError {
	return NewRpcError(RpcACT_MALFORMED, "actMalformed", message)
}

func RpcErrorEntryNotFound(message string) *RpcError {
	return NewRpcError(RpcENTRY_NOT_FOUND, "entryNotFound", message)
}

func RpcErrorTxnNotFound(message string) *RpcError {
	return NewRpcError(RpcTXN_NOT_FOUND, "txnNotFound", message)
}

func RpcErrorInvalidField(message string) *RpcError {
	return NewRpcError(RpcINVALID_FIELD, "invalidField", message)
}

func RpcErrorInvalidHash(message string) *RpcError {
	return NewRpcError(RpcINVALID_HASH, "invalidHash", message)
}

func RpcErrorNotEnabled(message string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", message)
}

func RpcErrorShutDown() *RpcError {
	return NewRpcError(RpcSHUT_DOWN, "shutDown", "The server is shutting down")
}

func RpcErrorNoPermission(message string) *RpcError {
	return NewRpcError(RpcNO_PERMISSION, "noPermission", message)
}

func RpcErrorSlowDown() *RpcError {
	return NewRpcError(RpcSLOW_DOWN, "slowDown", "You are placing too much load on the server")
}
