package testing

import (
	"crypto/sha512"

	"github.com/LeJamon/goEscrowd/internal/crypto"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Account represents a test account with keypair and address information.
type Account struct {
	// Name is a human-readable identifier for the account (used for debugging).
	Name string

	// Keypair signs the account's transactions.
	Keypair *crypto.Keypair

	// ID is the 20-byte account ID derived from the public key.
	ID types.AccountID

	// Address is the base58 text form of ID.
	Address string
}

// NewAccount creates a new test account with a deterministic keypair derived from the name.
// Using the same name will always produce the same account, making tests reproducible.
// By default, uses secp256k1 key derivation.
func NewAccount(name string) *Account {
	return NewAccountWithKeyType(name, crypto.KeyTypeSecp256k1)
}

// NewAccountWithKeyType creates a new test account with the specified key type.
func NewAccountWithKeyType(name string, keyType crypto.KeyType) *Account {
	hash := sha512.Sum512([]byte(name))
	seed := hash[:crypto.SeedSize]

	kp, err := crypto.DeriveKeypair(seed, keyType)
	if err != nil {
		panic("failed to derive keypair for account " + name + ": " + err.Error())
	}

	id := types.AccountID(kp.AccountID)
	return &Account{
		Name:    name,
		Keypair: kp,
		ID:      id,
		Address: id.String(),
	}
}

// String returns the account name.
func (a *Account) String() string {
	return a.Name
}
