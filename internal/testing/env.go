package testing

import (
	"context"
	"testing"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/ledger"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	_ "github.com/LeJamon/goEscrowd/internal/core/tx/all"
	"github.com/LeJamon/goEscrowd/internal/core/tx/mint"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/pebble"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Default reserve settings of the test environment.
const (
	DefaultReserveBase      uint64 = 200
	DefaultReserveIncrement uint64 = 50

	// DefaultFunding covers the base reserve and a dozen owned objects.
	DefaultFunding uint64 = 1_000
)

// TestEnv manages a test ledger environment for transaction testing.
// It provides a simplified interface for creating accounts, funding them,
// submitting transactions, and verifying results.
type TestEnv struct {
	t        *testing.T
	state    *ledger.State
	accounts map[types.AccountID]*Account

	config tx.EngineConfig

	// engine skips signature checks, signedEngine enforces them.
	engine       *tx.Engine
	signedEngine *tx.Engine
}

// NewTestEnv creates a new test environment over in-memory ledger state.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return newTestEnv(t, ledger.NewMemoryState())
}

// NewTestEnvBacked creates a test environment whose ledger state lives in
// a pebble database under t.TempDir().
func NewTestEnvBacked(t *testing.T) *TestEnv {
	t.Helper()

	mgr := pebble.NewManager(t.TempDir())
	t.Cleanup(func() { _ = mgr.Close() })

	db, err := mgr.OpenDB(ledger.StateDBName)
	if err != nil {
		t.Fatalf("Failed to open pebble state: %v", err)
	}
	state, err := ledger.NewState(db, ledger.StateConfig{})
	if err != nil {
		t.Fatalf("Failed to create ledger state: %v", err)
	}
	return newTestEnv(t, state)
}

func newTestEnv(t *testing.T, state *ledger.State) *TestEnv {
	cfg := tx.EngineConfig{
		ReserveBase:      DefaultReserveBase,
		ReserveIncrement: DefaultReserveIncrement,
	}
	signedCfg := cfg
	cfg.SkipSignatureVerification = true

	return &TestEnv{
		t:            t,
		state:        state,
		accounts:     make(map[types.AccountID]*Account),
		config:       cfg,
		engine:       tx.NewEngine(state, cfg),
		signedEngine: tx.NewEngine(state, signedCfg),
	}
}

// State returns the ledger state of the environment.
func (e *TestEnv) State() *ledger.State {
	return e.state
}

// Engine returns the engine used by Submit.
func (e *TestEnv) Engine() *tx.Engine {
	return e.engine
}

// Subscribe registers an observer on both engines of the environment.
func (e *TestEnv) Subscribe(o tx.Observer) {
	e.engine.Subscribe(o)
	e.signedEngine.Subscribe(o)
}

// Fund funds each account with DefaultFunding.
func (e *TestEnv) Fund(accounts ...*Account) {
	e.t.Helper()
	for _, acc := range accounts {
		e.FundAmount(acc, DefaultFunding)
	}
}

// FundAmount credits amount reserve units to acc, creating its account root when needed.
func (e *TestEnv) FundAmount(acc *Account, amount uint64) {
	e.t.Helper()
	e.accounts[acc.ID] = acc

	_, err := e.engine.Modify(func(view tx.LedgerView) error {
		return tx.FundAccount(view, acc.ID, amount)
	})
	if err != nil {
		e.t.Fatalf("Failed to fund %s: %v", acc.Name, err)
	}
}

// Submit submits a transaction with signature checks disabled.
// If the transaction doesn't have a sequence number set, it will be auto-filled
// from the account's current sequence in the ledger.
func (e *TestEnv) Submit(txn tx.Transaction) TxResult {
	e.t.Helper()
	e.autoFillSequence(txn)
	return newTxResult(e.engine.Apply(txn))
}

// SubmitSigned signs the transaction with the key of its source account and
// submits it with signature verification enabled.
func (e *TestEnv) SubmitSigned(txn tx.Transaction) TxResult {
	e.t.Helper()

	acc := e.findAccountByAddress(txn.GetCommon().Account)
	if acc == nil {
		e.t.Fatalf("SubmitSigned: account %s not registered in test env", txn.GetCommon().Account)
	}
	return e.SubmitSignedWith(txn, acc)
}

// SubmitSignedWith signs the transaction with signer's key and submits it
// with signature verification enabled.
func (e *TestEnv) SubmitSignedWith(txn tx.Transaction, signer *Account) TxResult {
	e.t.Helper()

	// Sequence is part of the signed payload.
	e.autoFillSequence(txn)
	if err := tx.Sign(txn, signer.Keypair); err != nil {
		e.t.Fatalf("Failed to sign transaction: %v", err)
	}
	return newTxResult(e.signedEngine.Apply(txn))
}

func (e *TestEnv) autoFillSequence(txn tx.Transaction) {
	e.t.Helper()

	common := txn.GetCommon()
	if common.Sequence != nil {
		return
	}
	id, err := common.AccountID()
	if err != nil {
		// Leave it unset; preflight reports the bad account.
		return
	}
	root := e.accountRoot(id)
	if root == nil {
		seq := uint32(1)
		common.Sequence = &seq
		return
	}
	seq := root.Sequence
	common.Sequence = &seq
}

func (e *TestEnv) findAccountByAddress(address string) *Account {
	id, err := types.ParseAccountID(address)
	if err != nil {
		return nil
	}
	return e.accounts[id]
}

func (e *TestEnv) read(k keylet.Keylet) []byte {
	e.t.Helper()
	data, err := e.state.Read(k)
	if err != nil {
		e.t.Fatalf("Failed to read %s entry: %v", k.Type, err)
	}
	return data
}

func (e *TestEnv) accountRoot(id types.AccountID) *sle.AccountRoot {
	e.t.Helper()
	data := e.read(keylet.Account(id))
	if data == nil {
		return nil
	}
	root, err := sle.ParseAccountRoot(data)
	if err != nil {
		e.t.Fatalf("Failed to parse account root: %v", err)
	}
	return root
}

// AccountInfo returns the account root of acc, or nil when it does not exist.
func (e *TestEnv) AccountInfo(acc *Account) *sle.AccountRoot {
	e.t.Helper()
	return e.accountRoot(acc.ID)
}

// Balance returns the reserve balance of an account.
func (e *TestEnv) Balance(acc *Account) uint64 {
	e.t.Helper()
	if root := e.accountRoot(acc.ID); root != nil {
		return root.Balance
	}
	return 0
}

// Seq returns the sequence the account's next transaction must carry.
func (e *TestEnv) Seq(acc *Account) uint32 {
	e.t.Helper()
	if root := e.accountRoot(acc.ID); root != nil {
		return root.Sequence
	}
	return 0
}

// OwnerCount returns the number of ledger objects acc owns.
func (e *TestEnv) OwnerCount(acc *Account) uint32 {
	e.t.Helper()
	if root := e.accountRoot(acc.ID); root != nil {
		return root.OwnerCount
	}
	return 0
}

// Exists reports whether the account root of acc exists.
func (e *TestEnv) Exists(acc *Account) bool {
	e.t.Helper()
	return e.accountRoot(acc.ID) != nil
}

// CreateAsset defines an asset issued by issuer and returns its ID.
func (e *TestEnv) CreateAsset(issuer *Account, code string, decimals uint8) types.AssetID {
	e.t.Helper()
	result := e.Submit(mint.NewAssetCreate(issuer.ID, code, decimals))
	RequireTxSuccess(e.t, result)
	return keylet.AssetID(issuer.ID, code)
}

// CreateHolding opens an empty holding of assetID for owner.
func (e *TestEnv) CreateHolding(owner *Account, assetID types.AssetID) {
	e.t.Helper()
	RequireTxSuccess(e.t, e.Submit(mint.NewHoldingCreate(owner.ID, assetID)))
}

// Issue mints amount of assetID into to's holding.
func (e *TestEnv) Issue(issuer *Account, assetID types.AssetID, to *Account, amount uint64) {
	e.t.Helper()
	RequireTxSuccess(e.t, e.Submit(mint.NewAssetIssue(issuer.ID, assetID, to.ID, amount)))
}

// Asset returns the definition of assetID, or nil when it does not exist.
func (e *TestEnv) Asset(assetID types.AssetID) *sle.Asset {
	e.t.Helper()
	def, err := asset.ReadAsset(e.state, assetID)
	if err != nil {
		return nil
	}
	return def
}

// HoldingExists reports whether owner has a holding of assetID.
func (e *TestEnv) HoldingExists(owner *Account, assetID types.AssetID) bool {
	e.t.Helper()
	return e.read(keylet.Holding(owner.ID, assetID)) != nil
}

// HoldingBalance returns the balance of owner's holding of assetID, or 0
// when the holding does not exist.
func (e *TestEnv) HoldingBalance(owner *Account, assetID types.AssetID) uint64 {
	e.t.Helper()
	h, err := asset.ReadHolding(e.state, keylet.Holding(owner.ID, assetID))
	if err != nil {
		return 0
	}
	return h.Balance
}

// Escrow returns the escrow record seller keeps for the asset pair, or nil.
func (e *TestEnv) Escrow(seller *Account, offer, request types.AssetID) *sle.Escrow {
	e.t.Helper()
	data := e.read(keylet.Escrow(seller.ID, offer, request))
	if data == nil {
		return nil
	}
	record, err := sle.ParseEscrow(data)
	if err != nil {
		e.t.Fatalf("Failed to parse escrow: %v", err)
	}
	return record
}

// VaultExists reports whether the escrow for the asset pair has a vault.
func (e *TestEnv) VaultExists(seller *Account, offer, request types.AssetID) bool {
	e.t.Helper()
	escrowKey := keylet.Escrow(seller.ID, offer, request)
	return e.read(keylet.Vault(escrowKey.Key)) != nil
}

// VaultBalance returns the balance locked in the escrow vault, or 0.
func (e *TestEnv) VaultBalance(seller *Account, offer, request types.AssetID) uint64 {
	e.t.Helper()
	escrowKey := keylet.Escrow(seller.ID, offer, request)
	h, err := asset.ReadHolding(e.state, keylet.Vault(escrowKey.Key))
	if err != nil {
		return 0
	}
	return h.Balance
}

// TotalSupply sums every holding and vault balance of assetID.
func (e *TestEnv) TotalSupply(assetID types.AssetID) uint64 {
	e.t.Helper()
	var total uint64
	err := e.state.ForEach(context.Background(), func(_ [32]byte, data []byte) bool {
		h, err := sle.ParseHolding(data)
		if err == nil && h.Asset == assetID {
			total += h.Balance
		}
		return true
	})
	if err != nil {
		e.t.Fatalf("Failed to scan ledger state: %v", err)
	}
	return total
}

// Snapshot returns a copy of every committed ledger entry keyed by its key.
func (e *TestEnv) Snapshot() map[[32]byte][]byte {
	e.t.Helper()
	snap := make(map[[32]byte][]byte)
	err := e.state.ForEach(context.Background(), func(key [32]byte, data []byte) bool {
		snap[key] = append([]byte(nil), data...)
		return true
	})
	if err != nil {
		e.t.Fatalf("Failed to snapshot ledger state: %v", err)
	}
	return snap
}
