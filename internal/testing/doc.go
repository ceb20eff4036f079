// Package testing provides test infrastructure for escrow transaction testing.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: A test environment with in-memory ledger state and an engine
//   - Account: Deterministic test accounts with keypairs
//   - Assertions: Test assertion helpers for common checks
//
// Per-domain transaction builders live in subpackages such as escrow.
//
// # Basic Usage
//
//	func TestSwap(t *testing.T) {
//	    env := testing.NewTestEnv(t)
//
//	    alice := testing.NewAccount("alice")
//	    bob := testing.NewAccount("bob")
//	    env.Fund(alice, bob)
//
//	    usd := env.CreateAsset(alice, "USD", 2)
//	    eur := env.CreateAsset(bob, "EUR", 2)
//	    env.Issue(alice, usd, alice, 100)
//	    env.Issue(bob, eur, bob, 300)
//
//	    result := env.Submit(escrow.EscrowCreate(alice, usd, eur, 100, 300).Build())
//	    testing.RequireTxSuccess(t, result)
//	}
//
// # TestEnv
//
// TestEnv owns a ledger.State and a tx.Engine over it. Submit fills in the
// source account's sequence and applies the transaction with signature
// checks disabled; SubmitSigned signs with the account's key and verifies.
//
//	env := testing.NewTestEnv(t)
//	env.Fund(alice)                       // Fund account with DefaultFunding
//	env.FundAmount(bob, 5_000)            // Fund with a specific amount
//	env.HoldingBalance(alice, usd)        // Balance of alice's USD holding
//	env.VaultBalance(alice, usd, eur)     // Balance locked in an escrow vault
//	env.Escrow(alice, usd, eur)           // The escrow record, or nil
//
// # Account
//
// Account represents a test account with deterministic keypair derivation.
// Using the same name will always produce the same account, making tests
// reproducible.
//
//	alice := testing.NewAccount("alice")        // secp256k1 by default
//	bob := testing.NewAccountWithKeyType("bob", crypto.KeyTypeEd25519)
package testing
