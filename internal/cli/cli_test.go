package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/config"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/crypto"
	"github.com/LeJamon/goEscrowd/internal/logging"
	"github.com/LeJamon/goEscrowd/internal/rpc"
	"github.com/LeJamon/goEscrowd/internal/types"
)

const (
	aliceSeed = "00112233445566778899aabbccddeeff"
	bobSeed   = "ffeeddccbbaa99887766554433221100"
)

func startDaemon(t *testing.T) string {
	t.Helper()
	cfg := service.DefaultConfig()
	cfg.Logger = logging.Discard()
	svc, err := service.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	serverCfg := config.ServerConfig{Listen: "127.0.0.1:0", MaxBodyBytes: 1 << 20, SendQueueLimit: 8}
	server := rpc.NewServer(serverCfg, svc, rpc.WithLogger(logging.Discard()))
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--rpc", url}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRunJSON(t *testing.T, url string, args ...string) map[string]interface{} {
	t.Helper()
	out, err := runCLI(t, url, args...)
	require.NoError(t, err, "escrowd %v: %s", args, out)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func accountFor(t *testing.T, seedHex string) types.AccountID {
	t.Helper()
	seed, err := hex.DecodeString(seedHex)
	require.NoError(t, err)
	kp, err := crypto.DeriveKeypair(seed, crypto.KeyTypeSecp256k1)
	require.NoError(t, err)
	return types.AccountID(kp.AccountID)
}

func TestKeygen(t *testing.T) {
	result := mustRunJSON(t, DefaultRPCURL, "keygen", "--seed", aliceSeed)
	assert.Equal(t, aliceSeed, result["seed"])
	assert.Equal(t, "secp256k1", result["key_type"])
	assert.Equal(t, accountFor(t, aliceSeed).String(), result["account"])

	fresh := mustRunJSON(t, DefaultRPCURL, "keygen", "--key-type", "ed25519")
	assert.Equal(t, "ed25519", fresh["key_type"])
	seed, err := hex.DecodeString(fresh["seed"].(string))
	require.NoError(t, err)
	assert.Len(t, seed, crypto.SeedSize)

	_, err = runCLI(t, DefaultRPCURL, "keygen", "--seed", "abcd")
	assert.Error(t, err)
	_, err = runCLI(t, DefaultRPCURL, "keygen", "--seed", aliceSeed, "--key-type", "rsa")
	assert.Error(t, err)
}

func TestSwapThroughCLI(t *testing.T) {
	url := startDaemon(t)
	alice := accountFor(t, aliceSeed)
	bob := accountFor(t, bobSeed)
	x := keylet.AssetID(alice, "XXX")
	y := keylet.AssetID(bob, "YYY")

	funded := mustRunJSON(t, url, "fund", alice.String(), "1000")
	assert.Equal(t, float64(1000), funded["balance"])
	mustRunJSON(t, url, "fund", bob.String(), "1000")

	mustRunJSON(t, url, "asset", "create", "XXX", "--decimals", "2", "--seed", aliceSeed)
	mustRunJSON(t, url, "asset", "create", "YYY", "--seed", bobSeed)
	mustRunJSON(t, url, "asset", "issue", x.String(), alice.String(), "25.00", "--seed", aliceSeed)
	mustRunJSON(t, url, "asset", "issue", y.String(), bob.String(), "7", "--seed", bobSeed)

	holding := mustRunJSON(t, url, "asset", "holding", alice.String(), x.String())
	assert.Equal(t, "25.00", holding["holding"].(map[string]interface{})["Balance"])

	created := mustRunJSON(t, url, "escrow", "create",
		"--offer-asset", x.String(), "--request-asset", y.String(),
		"--offer-amount", "12.5", "--request-amount", "3",
		"--seed", aliceSeed)
	assert.Equal(t, "tesSUCCESS", created["engine_result"])

	derived := mustRunJSON(t, url, "escrow", "derive",
		"--seller", alice.String(), "--offer-asset", x.String(), "--request-asset", y.String())
	addr := service.DeriveEscrow(alice, x, y)
	assert.Equal(t, addr.Escrow.String(), derived["escrow"])
	assert.Equal(t, addr.Vault.String(), derived["vault"])

	shown := mustRunJSON(t, url, "escrow", "show", addr.Escrow.String())
	assert.Equal(t, "12.50", shown["vault_balance"])

	listed := mustRunJSON(t, url, "escrow", "list", "--status", "open", "--seller", alice.String())
	assert.Len(t, listed["escrows"], 1)

	// bob cannot cancel alice's escrow.
	_, err := runCLI(t, url, "escrow", "cancel", "--seller", alice.String(),
		"--offer-asset", x.String(), "--request-asset", y.String(), "--seed", bobSeed)
	assert.ErrorContains(t, err, "tecNO_PERMISSION")

	mustRunJSON(t, url, "escrow", "accept", "--seller", alice.String(),
		"--offer-asset", x.String(), "--request-asset", y.String(), "--seed", bobSeed)

	shown = mustRunJSON(t, url, "escrow", "show",
		"--seller", alice.String(), "--offer-asset", x.String(), "--request-asset", y.String())
	node := shown["node"].(map[string]interface{})
	assert.Equal(t, "closed", node["Status"])
	assert.Equal(t, "settled", node["Outcome"])

	holding = mustRunJSON(t, url, "asset", "holding", bob.String(), x.String())
	assert.Equal(t, "12.50", holding["holding"].(map[string]interface{})["Balance"])
	holding = mustRunJSON(t, url, "asset", "holding", alice.String(), y.String())
	assert.Equal(t, "3", holding["holding"].(map[string]interface{})["Balance"])

	info := mustRunJSON(t, url, "account", "info", alice.String())
	assert.Equal(t, float64(4), info["account_data"].(map[string]interface{})["Sequence"])
}

func TestClientErrors(t *testing.T) {
	url := startDaemon(t)
	alice := accountFor(t, aliceSeed)
	t.Setenv(SeedEnv, "")

	_, err := runCLI(t, url, "asset", "create", "XXX")
	assert.ErrorIs(t, err, errNoSeed)

	// The account does not exist yet.
	_, err = runCLI(t, url, "asset", "create", "XXX", "--seed", aliceSeed)
	var callErr *callError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "actNotFound", callErr.Name)

	_, err = runCLI(t, url, "escrow", "derive", "--offer-asset", "x", "--request-asset", "y")
	assert.Error(t, err)

	_, err = runCLI(t, url, "fund", alice.String(), "lots")
	assert.Error(t, err)

	_, err = runCLI(t, url, "asset", "holding", "not-me", keylet.AssetID(alice, "XXX").String(),
		"--create", "--seed", aliceSeed)
	assert.ErrorContains(t, err, "not the signing account")
}

func TestSeedFromEnvironment(t *testing.T) {
	t.Setenv(SeedEnv, bobSeed)
	result := mustRunJSON(t, DefaultRPCURL, "keygen")
	assert.Equal(t, bobSeed, result["seed"])
	assert.Equal(t, accountFor(t, bobSeed).String(), result["account"])
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)

	out, err := runCLI(t, DefaultRPCURL, "config", "example", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = runCLI(t, DefaultRPCURL, "config", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	_, err = runCLI(t, DefaultRPCURL, "config", "check", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, DefaultRPCURL, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "escrowd version "+Version)
}
