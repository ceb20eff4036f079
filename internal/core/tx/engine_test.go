package tx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/crypto"
	"github.com/LeJamon/goEscrowd/internal/types"
)

const typeStub Type = 0x7FF0

// stubTx credits a marker account during Apply and then returns result,
// so tests can see whether its writes survived.
type stubTx struct {
	BaseTx
	Target types.Hash `json:"Target"`

	result  Result
	invalid error
	marker  types.AccountID
}

func newStubTx(account string, marker types.AccountID) *stubTx {
	return &stubTx{
		BaseTx: *NewBaseTx(typeStub, account),
		result: TesSUCCESS,
		marker: marker,
	}
}

func (p *stubTx) Validate() error {
	if p.invalid != nil {
		return p.invalid
	}
	return p.BaseTx.Validate()
}

func (p *stubTx) Flatten() (map[string]any, error) { return ReflectFlatten(p) }

func (p *stubTx) AccountConstraints() ([]AccountConstraint, error) {
	if p.Target.IsZero() {
		return nil, nil
	}
	return []AccountConstraint{{Name: "Target", Supplied: p.Target, Expected: keylet.Account(p.marker)}}, nil
}

func (p *stubTx) Apply(ctx *ApplyContext) Result {
	if err := FundAccount(ctx.View, p.marker, 1); err != nil {
		return TefINTERNAL
	}
	return p.result
}

type engineFixture struct {
	state  *ledger.State
	engine *Engine
	kp     *crypto.Keypair
	alice  types.AccountID
	marker types.AccountID
}

func newEngineFixture(t *testing.T, cfg EngineConfig) *engineFixture {
	t.Helper()

	kp, err := crypto.DeriveKeypair([]byte("engine-test-seed"), crypto.KeyTypeSecp256k1)
	require.NoError(t, err)

	f := &engineFixture{
		state:  ledger.NewMemoryState(),
		kp:     kp,
		alice:  types.AccountID(kp.AccountID),
		marker: types.AccountID{0x4D},
	}
	f.engine = NewEngine(f.state, cfg)

	_, err = f.engine.Modify(func(view LedgerView) error {
		return FundAccount(view, f.alice, 1000)
	})
	require.NoError(t, err)
	return f
}

func (f *engineFixture) stub(seq uint32) *stubTx {
	p := newStubTx(f.alice.String(), f.marker)
	p.SetSequence(seq)
	return p
}

func (f *engineFixture) root(t *testing.T, id types.AccountID) *sle.AccountRoot {
	t.Helper()
	data, err := f.state.Read(keylet.Account(id))
	require.NoError(t, err)
	if data == nil {
		return nil
	}
	root, err := sle.ParseAccountRoot(data)
	require.NoError(t, err)
	return root
}

func TestEngine_AppliesAndBumpsSequence(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})

	res := f.engine.Apply(f.stub(1))
	require.Equal(t, TesSUCCESS, res.Result, res.Message)
	assert.True(t, res.Applied)
	assert.False(t, res.Hash.IsZero())
	require.NotNil(t, res.Metadata)
	assert.Equal(t, TesSUCCESS, res.Metadata.TransactionResult)
	assert.Len(t, res.Metadata.AffectedNodes, 2)

	assert.Equal(t, uint32(2), f.root(t, f.alice).Sequence)
	require.NotNil(t, f.root(t, f.marker))
}

func TestEngine_FailureLeavesNoTrace(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})

	p := f.stub(1)
	p.result = TecUNFUNDED
	res := f.engine.Apply(p)

	assert.Equal(t, TecUNFUNDED, res.Result)
	assert.False(t, res.Applied)
	assert.Nil(t, res.Metadata)
	assert.Nil(t, f.root(t, f.marker), "writes made before the failure must be dropped")
	assert.Equal(t, uint32(1), f.root(t, f.alice).Sequence)
}

func TestEngine_Preflight(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})

	tests := []struct {
		name   string
		mutate func(p *stubTx)
		want   Result
	}{
		{"missing account", func(p *stubTx) { p.Account = "" }, TemBAD_SRC_ACCOUNT},
		{"garbage account", func(p *stubTx) { p.Account = "not-an-address" }, TemBAD_SRC_ACCOUNT},
		{"type mismatch", func(p *stubTx) { p.TransactionType = "EscrowCreate" }, TemINVALID},
		{"missing sequence", func(p *stubTx) { p.Sequence = nil }, TemBAD_SEQUENCE},
		{"coded validation error", func(p *stubTx) { p.invalid = errors.New("temBAD_AMOUNT: Amount must be positive") }, TemBAD_AMOUNT},
		{"uncoded validation error", func(p *stubTx) { p.invalid = errors.New("something is off") }, TemINVALID},
		{"non tem code in validation error", func(p *stubTx) { p.invalid = errors.New("tecUNFUNDED: nope") }, TemINVALID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.stub(1)
			tt.mutate(p)
			res := f.engine.Apply(p)
			assert.Equal(t, tt.want, res.Result)
			assert.True(t, res.Hash.IsZero())
			assert.Nil(t, f.root(t, f.marker))
		})
	}
}

func TestEngine_Preclaim(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})

	t.Run("unknown account", func(t *testing.T) {
		p := newStubTx(types.AccountID{0x01}.String(), f.marker)
		p.SetSequence(1)
		assert.Equal(t, TerNO_ACCOUNT, f.engine.Apply(p).Result)
	})
	t.Run("past sequence", func(t *testing.T) {
		require.Equal(t, TesSUCCESS, f.engine.Apply(f.stub(1)).Result)
		assert.Equal(t, TefPAST_SEQ, f.engine.Apply(f.stub(1)).Result)
	})
	t.Run("future sequence", func(t *testing.T) {
		res := f.engine.Apply(f.stub(9))
		assert.Equal(t, TerPRE_SEQ, res.Result)
		assert.True(t, res.Result.ShouldRetry())
	})
	t.Run("constraint mismatch", func(t *testing.T) {
		seq := f.root(t, f.alice).Sequence
		p := f.stub(seq)
		p.Target = types.Hash{0xFF}
		assert.Equal(t, TecCONSTRAINT_MISMATCH, f.engine.Apply(p).Result)
		assert.Equal(t, seq, f.root(t, f.alice).Sequence)
	})
	t.Run("constraint match", func(t *testing.T) {
		p := f.stub(f.root(t, f.alice).Sequence)
		p.Target = keylet.Account(f.marker).Hash()
		assert.Equal(t, TesSUCCESS, f.engine.Apply(p).Result)
	})
}

func TestEngine_Signatures(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})

	t.Run("unsigned", func(t *testing.T) {
		assert.Equal(t, TemBAD_SIGNATURE, f.engine.Apply(f.stub(1)).Result)
	})
	t.Run("tampered", func(t *testing.T) {
		p := f.stub(1)
		require.NoError(t, Sign(p, f.kp))
		p.SetSequence(2)
		assert.Equal(t, TemBAD_SIGNATURE, f.engine.Apply(p).Result)
	})
	t.Run("foreign key", func(t *testing.T) {
		other, err := crypto.DeriveKeypair([]byte("someone-else-sd"), crypto.KeyTypeEd25519)
		require.NoError(t, err)
		p := f.stub(1)
		require.NoError(t, Sign(p, other))
		assert.Equal(t, TefBAD_SIGNATURE, f.engine.Apply(p).Result)
	})
	t.Run("valid", func(t *testing.T) {
		p := f.stub(1)
		require.NoError(t, Sign(p, f.kp))
		assert.NoError(t, VerifySignature(p))
		assert.Equal(t, TesSUCCESS, f.engine.Apply(p).Result)
	})
}

func TestEngine_ObserversSeeEveryTransaction(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})

	var events []*Event
	f.engine.Subscribe(ObserverFunc(func(ev *Event) { events = append(events, ev) }))

	failing := f.stub(1)
	failing.result = TecNO_PERMISSION
	f.engine.Apply(failing)
	f.engine.Apply(f.stub(1))

	require.Len(t, events, 2)
	assert.Equal(t, TecNO_PERMISSION, events[0].Result)
	assert.False(t, events[0].Applied)
	assert.Nil(t, events[0].Metadata)
	assert.Equal(t, TesSUCCESS, events[1].Result)
	assert.True(t, events[1].Applied)
	assert.Equal(t, f.alice.String(), events[1].Account)
	assert.NotNil(t, events[1].Metadata)
}

func TestEngine_ModifyRollsBackOnError(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{SkipSignatureVerification: true})
	boom := errors.New("boom")

	_, err := f.engine.Modify(func(view LedgerView) error {
		if err := FundAccount(view, f.marker, 5); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, f.root(t, f.marker))

	meta, err := f.engine.Modify(func(view LedgerView) error {
		return FundAccount(view, f.alice, 5)
	})
	require.NoError(t, err)
	require.Len(t, meta.AffectedNodes, 1)
	assert.Equal(t, sle.NodeModified, meta.AffectedNodes[0].NodeType)
	assert.Equal(t, uint64(1005), f.root(t, f.alice).Balance)
}

func TestFundAccount_Overflow(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})

	_, err := f.engine.Modify(func(view LedgerView) error {
		return FundAccount(view, f.alice, ^uint64(0))
	})
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, uint64(1000), f.root(t, f.alice).Balance)
}

func TestApplyContext_Reserve(t *testing.T) {
	tests := []struct {
		name       string
		balance    uint64
		ownerCount uint32
		newObjects uint32
		want       Result
	}{
		{"exactly covered", 300, 0, 2, TesSUCCESS},
		{"one short", 299, 0, 2, TecINSUFFICIENT_RESERVE},
		{"existing objects count", 300, 1, 2, TecINSUFFICIENT_RESERVE},
		{"nothing new", 200, 0, 0, TesSUCCESS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &ApplyContext{
				Account: &sle.AccountRoot{Balance: tt.balance, OwnerCount: tt.ownerCount},
				Config:  EngineConfig{ReserveBase: 200, ReserveIncrement: 50},
			}
			assert.Equal(t, tt.want, ctx.CheckReserveIncrease(tt.newObjects))
		})
	}
}

func TestApplyContext_AdjustOwnerCount(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	other := types.AccountID{0x0B}
	_, err := f.engine.Modify(func(view LedgerView) error { return FundAccount(view, other, 10) })
	require.NoError(t, err)

	table := NewApplyStateTable(f.state, types.Hash{})
	ctx := &ApplyContext{
		View:      table,
		Account:   &sle.AccountRoot{Account: f.alice, OwnerCount: 1},
		AccountID: f.alice,
	}

	assert.Equal(t, TesSUCCESS, ctx.AdjustOwnerCount(f.alice, 2))
	assert.Equal(t, uint32(3), ctx.Account.OwnerCount)
	assert.Equal(t, TesSUCCESS, ctx.AdjustOwnerCount(f.alice, -5))
	assert.Equal(t, uint32(0), ctx.Account.OwnerCount)

	assert.Equal(t, TesSUCCESS, ctx.AdjustOwnerCount(other, 1))
	data, err := table.Read(keylet.Account(other))
	require.NoError(t, err)
	root, err := sle.ParseAccountRoot(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), root.OwnerCount)

	assert.Equal(t, TecNO_ENTRY, ctx.AdjustOwnerCount(types.AccountID{0xEE}, 1))
}
