package tx

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/crypto"
	cryptocommon "github.com/LeJamon/goEscrowd/internal/crypto/common"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Common errors
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidAccount       = errors.New("invalid account")
	ErrNotSigned            = errors.New("transaction is not signed")
	ErrBadSignature         = errors.New("signature verification failed")
	ErrSignerMismatch       = errors.New("signing key does not belong to the source account")
)

// Hash prefixes keep signing payloads and transaction IDs in separate domains.
var (
	prefixTxSign = []byte{'S', 'T', 'X', 0x00}
	prefixTxID   = []byte{'T', 'X', 'N', 0x00}
)

// Transaction is the interface that all transaction types must implement
type Transaction interface {
	// TxType returns the transaction type
	TxType() Type

	// GetCommon returns the common transaction fields
	GetCommon() *Common

	// Validate checks if the transaction is well formed. Errors may carry
	// a result code prefix such as "temBAD_AMOUNT: ...".
	Validate() error

	// Flatten returns a flat map of all transaction fields for serialization
	Flatten() (map[string]any, error)
}

// Appliable is implemented by transaction types that can apply themselves to ledger state.
type Appliable interface {
	Apply(ctx *ApplyContext) Result
}

// AccountConstraint pairs a caller supplied ledger address with the address
// the ledger derives for the same role.
type AccountConstraint struct {
	Name     string
	Supplied types.Hash
	Expected keylet.Keylet
}

// AccountValidator is implemented by transactions that name ledger
// addresses explicitly. The engine rejects the transaction with
// tecCONSTRAINT_MISMATCH before Apply when any pair disagrees.
type AccountValidator interface {
	AccountConstraints() ([]AccountConstraint, error)
}

// Common contains fields common to all transaction types
type Common struct {
	Account         string  `json:"Account"`
	TransactionType string  `json:"TransactionType"`
	Sequence        *uint32 `json:"Sequence,omitempty"`
	SigningPubKey   string  `json:"SigningPubKey,omitempty"`
	TxnSignature    string  `json:"TxnSignature,omitempty"`
	Memo            string  `json:"Memo,omitempty"`
}

// Validate validates the common fields
func (c *Common) Validate() error {
	if c.Account == "" {
		return errors.New("temBAD_SRC_ACCOUNT: Account is required")
	}
	if _, err := types.ParseAccountID(c.Account); err != nil {
		return fmt.Errorf("temBAD_SRC_ACCOUNT: %w", err)
	}
	if c.TransactionType == "" {
		return errors.New("temINVALID: TransactionType is required")
	}
	return nil
}

// AccountID decodes the source account.
func (c *Common) AccountID() (types.AccountID, error) {
	return types.ParseAccountID(c.Account)
}

// SetSequence sets the sequence number
func (c *Common) SetSequence(seq uint32) {
	c.Sequence = &seq
}

// GetSequence returns the sequence number (0 if not set)
func (c *Common) GetSequence() uint32 {
	if c.Sequence == nil {
		return 0
	}
	return *c.Sequence
}

// BaseTx provides a base implementation for transactions
type BaseTx struct {
	Common
	txType Type
}

// TxType returns the transaction type
func (b *BaseTx) TxType() Type {
	return b.txType
}

// GetCommon returns the common transaction fields
func (b *BaseTx) GetCommon() *Common {
	return &b.Common
}

// Validate validates the base transaction
func (b *BaseTx) Validate() error {
	return b.Common.Validate()
}

// NewBaseTx creates a new base transaction
func NewBaseTx(txType Type, account string) *BaseTx {
	return &BaseTx{
		Common: Common{
			Account:         account,
			TransactionType: txType.String(),
		},
		txType: txType,
	}
}

// ReflectFlatten flattens any transaction struct through its JSON form.
// Numbers are kept as json.Number so 64-bit amounts survive the round trip.
func ReflectFlatten(t Transaction) (map[string]any, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return nil, err
	}
	return flat, nil
}

// canonicalJSON encodes the flattened transaction with sorted keys,
// optionally leaving out the signature.
func canonicalJSON(t Transaction, withSignature bool) ([]byte, error) {
	flat, err := t.Flatten()
	if err != nil {
		return nil, err
	}
	if !withSignature {
		delete(flat, "TxnSignature")
	}
	return json.Marshal(flat)
}

// SigningPayload returns the bytes a signer signs.
func SigningPayload(t Transaction) ([]byte, error) {
	body, err := canonicalJSON(t, false)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, prefixTxSign...), body...), nil
}

// ComputeHash returns the transaction ID, covering the signature.
func ComputeHash(t Transaction) (types.Hash, error) {
	body, err := canonicalJSON(t, true)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Hash(cryptocommon.Sha512Half(prefixTxID, body)), nil
}

// Sign fills SigningPubKey and TxnSignature using kp.
func Sign(t Transaction, kp *crypto.Keypair) error {
	common := t.GetCommon()
	common.SigningPubKey = kp.PublicKey
	common.TxnSignature = ""

	payload, err := SigningPayload(t)
	if err != nil {
		return err
	}

	sig, err := kp.Sign(payload)
	if err != nil {
		return err
	}
	common.TxnSignature = sig
	return nil
}

// VerifySignature checks the transaction signature and that the signing
// key belongs to the source account.
func VerifySignature(t Transaction) error {
	common := t.GetCommon()
	if common.SigningPubKey == "" || common.TxnSignature == "" {
		return ErrNotSigned
	}

	payload, err := SigningPayload(t)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(payload, common.SigningPubKey, common.TxnSignature) {
		return ErrBadSignature
	}

	signer, err := signerAccount(common.SigningPubKey)
	if err != nil {
		return ErrBadSignature
	}
	if signer.String() != common.Account {
		return ErrSignerMismatch
	}
	return nil
}

func signerAccount(pubKeyHex string) (types.AccountID, error) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return types.AccountID{}, err
	}
	return types.AccountID(crypto.CalcAccountID(pub)), nil
}
