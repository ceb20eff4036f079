package crypto

import (
	"encoding/hex"
	"errors"

	"github.com/LeJamon/goEscrowd/internal/crypto/algorithms/ed25519"
	"github.com/LeJamon/goEscrowd/internal/crypto/algorithms/secp256k1"
)

// ErrUnsupportedKeyType is returned when an unsupported key type is requested.
var ErrUnsupportedKeyType = errors.New("unsupported key type")

// SignatureProvider is implemented by each signing algorithm.
type SignatureProvider interface {
	GenerateKeypair(seed []byte) (privateKey, publicKey string, err error)
	SignMessage(message []byte, privateKeyHex string) (signature string, err error)
	VerifySignature(message []byte, publicKeyHex, signatureHex string) bool
}

// Provider returns the signature provider for a key type.
func Provider(kt KeyType) (SignatureProvider, error) {
	switch kt {
	case KeyTypeEd25519:
		return ed25519.NewED25519Provider(), nil
	case KeyTypeSecp256k1:
		return secp256k1.NewSECP256K1Provider(), nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}

// Keypair holds hex encoded keys together with the derived account ID.
type Keypair struct {
	Type       KeyType
	PrivateKey string
	PublicKey  string
	AccountID  [AccountIDSize]byte

	provider SignatureProvider
}

// DeriveKeypair deterministically derives a keypair from a seed.
func DeriveKeypair(seed []byte, kt KeyType) (*Keypair, error) {
	provider, err := Provider(kt)
	if err != nil {
		return nil, err
	}

	private, public, err := provider.GenerateKeypair(seed)
	if err != nil {
		return nil, err
	}

	pubBytes, err := hex.DecodeString(public)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		Type:       kt,
		PrivateKey: private,
		PublicKey:  public,
		AccountID:  CalcAccountID(pubBytes),
		provider:   provider,
	}, nil
}

// Sign signs message with the keypair's private key and returns the hex signature.
func (k *Keypair) Sign(message []byte) (string, error) {
	return k.provider.SignMessage(message, k.PrivateKey)
}

// VerifySignature checks a hex signature against a hex public key, picking
// the algorithm from the public key prefix.
func VerifySignature(message []byte, publicKeyHex, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}

	provider, err := Provider(PublicKeyType(pubBytes))
	if err != nil {
		return false
	}

	return provider.VerifySignature(message, publicKeyHex, signatureHex)
}
