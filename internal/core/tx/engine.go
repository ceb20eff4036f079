package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// LedgerView provides read/write access to ledger state
type LedgerView = sle.LedgerView

// Committer is implemented by base views that stage writes. The engine
// commits after a successful apply and discards otherwise, so a
// transaction's writes land together or not at all.
type Committer interface {
	Commit() error
	Discard()
}

// EngineConfig holds configuration for the transaction engine
type EngineConfig struct {
	// ReserveBase is the balance an account must keep with no owned objects
	ReserveBase uint64

	// ReserveIncrement is the additional balance kept per owned object
	ReserveIncrement uint64

	// SkipSignatureVerification skips signature checks (for testing/standalone)
	SkipSignatureVerification bool
}

// ApplyResult contains the result of applying a transaction
type ApplyResult struct {
	// Result is the transaction result code
	Result Result

	// Applied indicates if the transaction changed the ledger
	Applied bool

	// Hash is the transaction ID (zero if it could not be computed)
	Hash types.Hash

	// Metadata contains the changes made by the transaction
	Metadata *Metadata

	// Message is a human-readable result message
	Message string
}

// Metadata tracks changes made by a transaction
type Metadata struct {
	// AffectedNodes lists all nodes that were created, modified, or deleted
	AffectedNodes []AffectedNode

	// TransactionResult is the result code
	TransactionResult Result
}

// AffectedNode is an alias for sle.AffectedNode
type AffectedNode = sle.AffectedNode

// MarshalJSON renders metadata with each node nested under its node type.
func (m Metadata) MarshalJSON() ([]byte, error) {
	sortedNodes := make([]AffectedNode, len(m.AffectedNodes))
	copy(sortedNodes, m.AffectedNodes)
	sort.Slice(sortedNodes, func(i, j int) bool {
		return sortedNodes[i].LedgerIndex < sortedNodes[j].LedgerIndex
	})

	affectedNodes := make([]map[string]any, 0, len(sortedNodes))
	for _, node := range sortedNodes {
		affectedNodes = append(affectedNodes, nestedNode(node))
	}

	return json.Marshal(map[string]any{
		"AffectedNodes":     affectedNodes,
		"TransactionResult": m.TransactionResult.String(),
	})
}

// Node returns the first affected node with the given ledger entry type.
func (m *Metadata) Node(entryType string) (AffectedNode, bool) {
	if m == nil {
		return AffectedNode{}, false
	}
	for _, n := range m.AffectedNodes {
		if n.LedgerEntryType == entryType {
			return n, true
		}
	}
	return AffectedNode{}, false
}

func nestedNode(n AffectedNode) map[string]any {
	inner := map[string]any{
		"LedgerEntryType": n.LedgerEntryType,
		"LedgerIndex":     n.LedgerIndex,
	}
	if n.FinalFields != nil {
		inner["FinalFields"] = n.FinalFields
	}
	if len(n.PreviousFields) > 0 {
		inner["PreviousFields"] = n.PreviousFields
	}
	if n.PreviousTxnID != "" {
		inner["PreviousTxnID"] = n.PreviousTxnID
	}
	if n.NewFields != nil {
		inner["NewFields"] = n.NewFields
	}
	return map[string]any{n.NodeType: inner}
}

// Event describes one processed transaction. Observers receive events for
// failed transactions too; Applied tells them apart.
type Event struct {
	Tx       Transaction
	Hash     types.Hash
	Account  string
	Result   Result
	Applied  bool
	Metadata *Metadata
	Duration time.Duration
}

// Observer receives engine events. Observers are called while the engine
// lock is held, in transaction order, and must not call back into the engine.
type Observer interface {
	TransactionProcessed(ev *Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev *Event)

func (f ObserverFunc) TransactionProcessed(ev *Event) { f(ev) }

// Engine processes transactions against a ledger. Apply is serialized:
// at most one transaction is in flight at a time.
type Engine struct {
	mu sync.Mutex

	// view provides access to ledger state
	view LedgerView

	// config holds engine configuration
	config EngineConfig

	observers []Observer
}

// NewEngine creates a new transaction engine
func NewEngine(view LedgerView, config EngineConfig) *Engine {
	return &Engine{
		view:   view,
		config: config,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Subscribe registers an observer for processed transactions.
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Apply processes a transaction and applies it to the ledger
func (e *Engine) Apply(t Transaction) ApplyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := e.apply(t)

	ev := &Event{
		Tx:       t,
		Hash:     res.Hash,
		Account:  t.GetCommon().Account,
		Result:   res.Result,
		Applied:  res.Applied,
		Metadata: res.Metadata,
		Duration: time.Since(start),
	}
	for _, o := range e.observers {
		o.TransactionProcessed(ev)
	}

	return res
}

func (e *Engine) apply(t Transaction) ApplyResult {
	// Step 1: Preflight checks (syntax and signature)
	if result := e.preflight(t); !result.IsSuccess() {
		return failed(result, types.Hash{})
	}

	// Step 2: Compute transaction hash
	txHash, err := ComputeHash(t)
	if err != nil {
		res := failed(TefINTERNAL, types.Hash{})
		res.Message = "failed to compute transaction hash: " + err.Error()
		return res
	}

	// Step 3: Preclaim checks (validate against ledger state)
	account, result := e.preclaim(t)
	if !result.IsSuccess() {
		return failed(result, txHash)
	}

	// Step 4: Apply in a sandbox
	metadata, result := e.doApply(t, account, txHash)
	if !result.IsSuccess() {
		return failed(result, txHash)
	}

	metadata.TransactionResult = result
	return ApplyResult{
		Result:   result,
		Applied:  true,
		Hash:     txHash,
		Metadata: metadata,
		Message:  result.Message(),
	}
}

func failed(result Result, txHash types.Hash) ApplyResult {
	return ApplyResult{
		Result:  result,
		Applied: false,
		Hash:    txHash,
		Message: result.Message(),
	}
}

// preflight performs initial validation on the transaction
func (e *Engine) preflight(t Transaction) Result {
	common := t.GetCommon()

	if common.Account == "" {
		return TemBAD_SRC_ACCOUNT
	}
	if _, err := common.AccountID(); err != nil {
		return TemBAD_SRC_ACCOUNT
	}

	if common.TransactionType != t.TxType().String() {
		return TemINVALID
	}

	if common.Sequence == nil {
		return TemBAD_SEQUENCE
	}

	if !e.config.SkipSignatureVerification {
		switch err := VerifySignature(t); {
		case err == nil:
		case errors.Is(err, ErrSignerMismatch):
			return TefBAD_SIGNATURE
		default:
			return TemBAD_SIGNATURE
		}
	}

	// Transaction-specific validation
	if err := t.Validate(); err != nil {
		return parseValidationError(err)
	}

	return TesSUCCESS
}

// parseValidationError extracts a result code from a validation error message.
// If the error message starts with a known code prefix (e.g., "temREDUNDANT:"),
// it returns the corresponding Result. Otherwise, it returns TemINVALID.
func parseValidationError(err error) Result {
	msg := err.Error()

	code, _, _ := strings.Cut(msg, ":")
	code = strings.TrimSpace(code)
	if r, ok := ResultFromString(code); ok && r.IsTem() {
		return r
	}

	return TemINVALID
}

// preclaim checks the source account and sequence, then runs the
// account-address validation of transactions that supply ledger addresses.
func (e *Engine) preclaim(t Transaction) (*sle.AccountRoot, Result) {
	common := t.GetCommon()
	accountID, _ := common.AccountID()

	accountData, err := e.view.Read(keylet.Account(accountID))
	if err != nil {
		return nil, TefINTERNAL
	}
	if accountData == nil {
		return nil, TerNO_ACCOUNT
	}

	account, err := sle.ParseAccountRoot(accountData)
	if err != nil {
		return nil, TefINTERNAL
	}

	seq := common.GetSequence()
	if seq < account.Sequence {
		return nil, TefPAST_SEQ
	}
	if seq > account.Sequence {
		return nil, TerPRE_SEQ
	}

	if v, ok := t.(AccountValidator); ok {
		constraints, err := v.AccountConstraints()
		if err != nil {
			return nil, TemMALFORMED
		}
		for _, c := range constraints {
			if !c.Expected.Matches(c.Supplied) {
				return nil, TecCONSTRAINT_MISMATCH
			}
		}
	}

	return account, TesSUCCESS
}

// doApply runs the transaction in an ApplyStateTable. Only tesSUCCESS
// reaches the base view; any other result leaves the ledger untouched,
// including the source account's sequence.
func (e *Engine) doApply(t Transaction, account *sle.AccountRoot, txHash types.Hash) (*Metadata, Result) {
	common := t.GetCommon()
	accountID, _ := common.AccountID()
	accountKey := keylet.Account(accountID)

	table := NewApplyStateTable(e.view, txHash)

	ctx := &ApplyContext{
		View:      table,
		Account:   account,
		AccountID: accountID,
		Config:    e.config,
		TxHash:    txHash,
	}

	appliable, ok := t.(Appliable)
	if !ok {
		return nil, TemUNKNOWN
	}
	if result := appliable.Apply(ctx); !result.IsSuccess() {
		return nil, result
	}

	account.Sequence = common.GetSequence() + 1
	updatedData, err := sle.SerializeAccountRoot(account)
	if err != nil {
		return nil, TefINTERNAL
	}
	if err := table.Update(accountKey, updatedData); err != nil {
		return nil, TefINTERNAL
	}

	metadata, err := table.Apply()
	if err == nil {
		err = e.commit()
	}
	if err != nil {
		e.discard()
		return nil, TefINTERNAL
	}

	return metadata, TesSUCCESS
}

func (e *Engine) commit() error {
	if c, ok := e.view.(Committer); ok {
		if err := c.Commit(); err != nil {
			return fmt.Errorf("commit ledger changes: %w", err)
		}
	}
	return nil
}

func (e *Engine) discard() {
	if c, ok := e.view.(Committer); ok {
		c.Discard()
	}
}

// Modify applies an administrative change outside any transaction, such
// as funding an account. fn runs in a sandbox like a transaction does and
// its changes are committed only when it returns nil. No event is emitted.
func (e *Engine) Modify(fn func(view LedgerView) error) (*Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table := NewApplyStateTable(e.view, types.Hash{})
	if err := fn(table); err != nil {
		return nil, err
	}

	metadata, err := table.Apply()
	if err == nil {
		err = e.commit()
	}
	if err != nil {
		e.discard()
		return nil, err
	}
	metadata.TransactionResult = TesSUCCESS
	return metadata, nil
}
