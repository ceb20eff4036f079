package tx

import "fmt"

// Result represents a transaction result code
type Result int

// Transaction result codes, organized by category: tes, tec, tef, tem, ter.
// Only tesSUCCESS changes ledger state.
const (
	// tesSUCCESS
	TesSUCCESS Result = 0

	// tec codes (100-199): the transaction was well formed but could not
	// be applied against the current ledger state
	TecUNFUNDED             Result = 129
	TecNO_ISSUER            Result = 133
	TecNO_PERMISSION        Result = 139
	TecNO_ENTRY             Result = 140
	TecINSUFFICIENT_RESERVE Result = 141
	TecINTERNAL             Result = 144
	TecDUPLICATE            Result = 149
	TecBAD_MINT             Result = 180
	TecBAD_OWNER            Result = 181
	TecCONSTRAINT_MISMATCH  Result = 182

	// tef codes (-199 to -100): failure that can never succeed as submitted
	TefFAILURE       Result = -199
	TefINTERNAL      Result = -192
	TefPAST_SEQ      Result = -190
	TefBAD_SIGNATURE Result = -186

	// tem codes (-299 to -200): malformed transaction
	TemMALFORMED       Result = -299
	TemBAD_AMOUNT      Result = -298
	TemBAD_SEQUENCE    Result = -283
	TemBAD_SIGNATURE   Result = -282
	TemBAD_SRC_ACCOUNT Result = -281
	TemINVALID         Result = -277
	TemREDUNDANT       Result = -275
	TemUNKNOWN         Result = -264

	// ter codes (-99 to -1): may succeed later
	TerNO_ACCOUNT Result = -96
	TerPRE_SEQ    Result = -92
)

var resultNames = map[Result]string{
	TesSUCCESS:              "tesSUCCESS",
	TecUNFUNDED:             "tecUNFUNDED",
	TecNO_ISSUER:            "tecNO_ISSUER",
	TecNO_PERMISSION:        "tecNO_PERMISSION",
	TecNO_ENTRY:             "tecNO_ENTRY",
	TecINSUFFICIENT_RESERVE: "tecINSUFFICIENT_RESERVE",
	TecINTERNAL:             "tecINTERNAL",
	TecDUPLICATE:            "tecDUPLICATE",
	TecBAD_MINT:             "tecBAD_MINT",
	TecBAD_OWNER:            "tecBAD_OWNER",
	TecCONSTRAINT_MISMATCH:  "tecCONSTRAINT_MISMATCH",
	TefFAILURE:              "tefFAILURE",
	TefINTERNAL:             "tefINTERNAL",
	TefPAST_SEQ:             "tefPAST_SEQ",
	TefBAD_SIGNATURE:        "tefBAD_SIGNATURE",
	TemMALFORMED:            "temMALFORMED",
	TemBAD_AMOUNT:           "temBAD_AMOUNT",
	TemBAD_SEQUENCE:         "temBAD_SEQUENCE",
	TemBAD_SIGNATURE:        "temBAD_SIGNATURE",
	TemBAD_SRC_ACCOUNT:      "temBAD_SRC_ACCOUNT",
	TemINVALID:              "temINVALID",
	TemREDUNDANT:            "temREDUNDANT",
	TemUNKNOWN:              "temUNKNOWN",
	TerNO_ACCOUNT:           "terNO_ACCOUNT",
	TerPRE_SEQ:              "terPRE_SEQ",
}

// String returns the string representation of the result code
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", r)
}

// ResultFromString resolves a result code from its name.
func ResultFromString(name string) (Result, bool) {
	for r, n := range resultNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// IsSuccess returns true if the result indicates success
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec returns true if this is a tec (claimed cost) code
func (r Result) IsTec() bool {
	return r >= 100 && r < 200
}

// IsTef returns true if this is a tef (failure) code
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTem returns true if this is a tem (malformed) code
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}

// IsTer returns true if this is a ter (retry) code
func (r Result) IsTer() bool {
	return r >= -99 && r <= -1
}

// ShouldRetry returns true if the transaction may succeed if resubmitted later
func (r Result) ShouldRetry() bool {
	return r.IsTer()
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	switch r {
	case TesSUCCESS:
		return "The transaction was applied."
	case TecUNFUNDED:
		return "Insufficient funds in the source holding."
	case TecNO_ISSUER:
		return "Asset does not exist."
	case TecNO_PERMISSION:
		return "No permission to perform requested operation."
	case TecNO_ENTRY:
		return "No matching entry found."
	case TecINSUFFICIENT_RESERVE:
		return "Insufficient reserve to complete requested operation."
	case TecDUPLICATE:
		return "Ledger object already exists."
	case TecBAD_MINT:
		return "Holding is for the wrong asset."
	case TecBAD_OWNER:
		return "Holding is not owned by the expected account."
	case TecCONSTRAINT_MISMATCH:
		return "Supplied address does not match the derived address."
	case TefINTERNAL:
		return "Internal error."
	case TefPAST_SEQ:
		return "This sequence number has already passed."
	case TefBAD_SIGNATURE:
		return "Signature does not match the source account."
	case TemMALFORMED:
		return "Malformed transaction."
	case TemBAD_AMOUNT:
		return "Amounts must be positive."
	case TemBAD_SEQUENCE:
		return "Sequence number is required."
	case TemBAD_SIGNATURE:
		return "Malformed: Bad signature."
	case TemBAD_SRC_ACCOUNT:
		return "Malformed: Bad source account."
	case TemINVALID:
		return "The transaction is ill-formed."
	case TemREDUNDANT:
		return "The transaction is redundant."
	case TemUNKNOWN:
		return "The transaction type is unknown."
	case TerNO_ACCOUNT:
		return "The source account does not exist."
	case TerPRE_SEQ:
		return "Missing/inapplicable prior transaction."
	default:
		return r.String()
	}
}

// MarshalText encodes the result by name.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
