package di

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/config"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/core/tx/mint"
	"github.com/LeJamon/goEscrowd/internal/metrics"
	"github.com/LeJamon/goEscrowd/internal/storage"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	jtx "github.com/LeJamon/goEscrowd/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadDefaultConfig()
	require.NoError(t, err)
	cfg.Storage.Backend = storage.BackendMemory
	cfg.Log.Level = "error"
	cfg.Ledger.SkipSignatureVerification = true
	return cfg
}

func newProvider(t *testing.T, cfg *config.Config) (*Provider, *Container) {
	t.Helper()
	c := New()
	p := NewProvider(c, cfg)
	require.NoError(t, p.RegisterAll())
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return p, c
}

func TestProviderMemoryStack(t *testing.T) {
	cfg := testConfig(t)
	p, c := newProvider(t, cfg)

	logger, err := p.GetLogger()
	require.NoError(t, err)
	logger.SetOutput(io.Discard)

	svc, err := p.GetLedgerService()
	require.NoError(t, err)
	assert.False(t, svc.IndexEnabled())

	index, err := Resolve[*relationaldb.Manager](c, ServiceRelationalDB)
	require.NoError(t, err)
	assert.Nil(t, index)

	server, err := p.GetRPCServer()
	require.NoError(t, err)

	// Metrics are enabled by default and served by the RPC server.
	m, err := Resolve[*metrics.Metrics](c, ServiceMetrics)
	require.NoError(t, err)
	require.NotNil(t, m)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "escrowd_ledger_cache_hits_total")

	assert.Same(t, cfg, p.GetConfig())
}

func TestProviderMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Metrics = false
	p, c := newProvider(t, cfg)

	m, err := Resolve[*metrics.Metrics](c, ServiceMetrics)
	require.NoError(t, err)
	assert.Nil(t, m)

	server, err := p.GetRPCServer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviderPersistentStackWithIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Storage.Backend = storage.BackendPebble
	cfg.Storage.Path = filepath.Join(dir, "db")
	cfg.Index.Enabled = true
	cfg.Index.Driver = relationaldb.DriverSQLite
	cfg.Index.Database = filepath.Join(dir, "index.db")
	require.NoError(t, config.ValidateConfig(cfg))

	alice := jtx.NewAccount("alice")
	bob := jtx.NewAccount("bob")
	x := keylet.AssetID(alice.ID, "XXX")
	y := keylet.AssetID(bob.ID, "YYY")

	{
		p, c := newProvider(t, cfg)
		svc, err := p.GetLedgerService()
		require.NoError(t, err)
		require.True(t, svc.IndexEnabled())

		require.NoError(t, svc.Fund(alice.ID, jtx.DefaultFunding))
		require.NoError(t, svc.Fund(bob.ID, jtx.DefaultFunding))

		create := mint.NewAssetCreate(alice.ID, "XXX", 0)
		create.SetSequence(1)
		res, err := svc.Submit(create)
		require.NoError(t, err)
		require.True(t, res.Applied)

		other := mint.NewAssetCreate(bob.ID, "YYY", 0)
		other.SetSequence(1)
		res, err = svc.Submit(other)
		require.NoError(t, err)
		require.True(t, res.Applied)

		issue := mint.NewAssetIssue(alice.ID, x, alice.ID, 10)
		issue.SetSequence(2)
		res, err = svc.Submit(issue)
		require.NoError(t, err)
		require.True(t, res.Applied)

		open := escrow.NewEscrowCreate(alice.ID, x, y, 10, 3)
		open.SetSequence(3)
		res, err = svc.Submit(open)
		require.NoError(t, err)
		require.True(t, res.Applied)

		require.NoError(t, svc.FlushIndex(context.Background()))
		require.NoError(t, c.Close(context.Background()))
	}

	// A second process over the same directories sees the escrow.
	p, _ := newProvider(t, cfg)
	svc, err := p.GetLedgerService()
	require.NoError(t, err)

	info, err := svc.GetAccountInfo(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), info.Sequence)

	list, err := svc.ListEscrows(context.Background(), relationaldb.EscrowFilter{Seller: alice.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "open", list[0].Status)
	assert.Equal(t, int64(1), svc.GetServerInfo(context.Background()).OpenEscrows)
}
