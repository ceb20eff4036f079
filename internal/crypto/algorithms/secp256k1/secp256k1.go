package secp256k1

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	crypto "github.com/LeJamon/goEscrowd/internal/crypto/common"
)

// PrivateKeyPrefix is prepended to hex private keys so both key types
// serialize to 33 bytes.
const PrivateKeyPrefix byte = 0x00

var (
	ErrInvalidPrivateKey = errors.New("invalid private key format")
	ErrInvalidSignature  = errors.New("invalid signature format")
)

// SECP256K1SignatureProvider signs Sha512Half digests with secp256k1 ECDSA
// and emits DER encoded, low-S signatures.
type SECP256K1SignatureProvider struct {
	keyPrefix byte
}

func NewSECP256K1Provider() *SECP256K1SignatureProvider {
	return &SECP256K1SignatureProvider{
		keyPrefix: PrivateKeyPrefix,
	}
}

// GenerateKeypair derives a keypair from the seed. The public key is
// returned in compressed form.
func (p *SECP256K1SignatureProvider) GenerateKeypair(seed []byte) (string, string, error) {
	keyMaterial := crypto.Sha512Half(seed)
	privateKey, publicKey := btcec.PrivKeyFromBytes(keyMaterial[:])
	if privateKey.Key.IsZero() {
		return "", "", ErrInvalidPrivateKey
	}

	prefixedPrivKey := append([]byte{p.keyPrefix}, privateKey.Serialize()...)

	public := strings.ToUpper(hex.EncodeToString(publicKey.SerializeCompressed()))
	private := strings.ToUpper(hex.EncodeToString(prefixedPrivKey))

	return private, public, nil
}

func (p *SECP256K1SignatureProvider) SignMessage(message []byte, privateKeyHex string) (string, error) {
	if len(privateKeyHex) == 66 && strings.HasPrefix(privateKeyHex, "00") {
		privateKeyHex = privateKeyHex[2:]
	}
	if len(privateKeyHex) != 64 {
		return "", ErrInvalidPrivateKey
	}

	privKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", ErrInvalidPrivateKey
	}

	privateKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	digest := crypto.Sha512Half(message)
	signature := ecdsa.Sign(privateKey, digest[:])

	return strings.ToUpper(hex.EncodeToString(signature.Serialize())), nil
}

func (p *SECP256K1SignatureProvider) VerifySignature(message []byte, publicKeyHex, signatureHex string) bool {
	pubKeyBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	publicKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	digest := crypto.Sha512Half(message)
	return signature.Verify(digest[:], publicKey)
}
