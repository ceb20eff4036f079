package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/crypto"
	"github.com/LeJamon/goEscrowd/internal/types"
)

var errNoSeed = errors.New("a signing seed is required: pass --seed or set " + SeedEnv)

// callError is an error result returned by the daemon
type callError struct {
	Name    string
	Code    int
	Message string
}

func (e *callError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Name, e.Code)
}

// rpcClient sends XRPL-style JSON-RPC requests to the daemon
type rpcClient struct {
	url  string
	http *http.Client
}

func newRPCClient(opts *rootOptions) *rpcClient {
	return &rpcClient{
		url:  opts.rpcURL,
		http: &http.Client{Timeout: opts.timeout},
	}
}

// call invokes method and returns its result object. Error results are
// returned as *callError.
func (c *rpcClient) call(ctx context.Context, method string, params interface{}) (map[string]interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"method": method,
		"params": []interface{}{params},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: %s: %s", method, resp.Status, strings.TrimSpace(string(msg)))
	}

	var envelope struct {
		Result map[string]interface{} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}
	result := envelope.Result
	if result == nil {
		return nil, fmt.Errorf("%s: empty response", method)
	}
	if result["status"] == "error" {
		e := &callError{}
		e.Name, _ = result["error"].(string)
		e.Message, _ = result["error_message"].(string)
		if code, ok := result["error_code"].(float64); ok {
			e.Code = int(code)
		}
		return nil, e
	}
	delete(result, "status")
	return result, nil
}

// signer derives the signing keypair from --seed or the environment
func (o *rootOptions) signer() (*crypto.Keypair, error) {
	seedHex := o.seed
	if seedHex == "" {
		seedHex = os.Getenv(SeedEnv)
	}
	if seedHex == "" {
		return nil, errNoSeed
	}
	seed, err := hex.DecodeString(strings.TrimSpace(seedHex))
	if err != nil || len(seed) != crypto.SeedSize {
		return nil, fmt.Errorf("seed must be %d hex encoded bytes", crypto.SeedSize)
	}
	kt := crypto.ParseKeyType(o.keyType)
	if kt == crypto.KeyTypeUnknown {
		return nil, fmt.Errorf("unknown key type %q", o.keyType)
	}
	return crypto.DeriveKeypair(seed, kt)
}

// accountSequence fetches the next sequence of account
func (c *rpcClient) accountSequence(ctx context.Context, account types.AccountID) (uint32, error) {
	result, err := c.call(ctx, "account_info", map[string]interface{}{"account": account.String()})
	if err != nil {
		return 0, err
	}
	data, _ := result["account_data"].(map[string]interface{})
	seq, ok := data["Sequence"].(float64)
	if !ok {
		return 0, fmt.Errorf("account_info: missing Sequence")
	}
	return uint32(seq), nil
}

// assetDecimals fetches the decimals of an asset
func (c *rpcClient) assetDecimals(ctx context.Context, asset types.AssetID) (uint8, error) {
	result, err := c.call(ctx, "asset_info", map[string]interface{}{"asset": asset.String()})
	if err != nil {
		return 0, err
	}
	def, _ := result["asset"].(map[string]interface{})
	decimals, ok := def["Decimals"].(float64)
	if !ok {
		return 0, fmt.Errorf("asset_info: missing Decimals")
	}
	return uint8(decimals), nil
}

// submit fills in the sequence, signs t with kp and submits it. A result
// other than tesSUCCESS is returned as an error after printing.
func (c *rpcClient) submit(cmd *cobra.Command, kp *crypto.Keypair, t tx.Transaction) error {
	ctx := cmd.Context()
	account := types.AccountID(kp.AccountID)

	seq, err := c.accountSequence(ctx, account)
	if err != nil {
		return err
	}
	t.GetCommon().SetSequence(seq)
	if err := tx.Sign(t, kp); err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	txJSON, err := tx.ToJSON(t)
	if err != nil {
		return err
	}

	result, err := c.call(ctx, "submit", map[string]interface{}{"tx_json": json.RawMessage(txJSON)})
	if err != nil {
		return err
	}
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if code, _ := result["engine_result"].(string); code != tx.TesSUCCESS.String() {
		msg, _ := result["engine_result_message"].(string)
		return fmt.Errorf("%s: %s", code, msg)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// runQuery calls method with params and prints the result
func runQuery(cmd *cobra.Command, opts *rootOptions, method string, params map[string]interface{}) error {
	result, err := newRPCClient(opts).call(cmd.Context(), method, params)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}
