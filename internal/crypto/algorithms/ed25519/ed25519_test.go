package ed25519

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestED25519GenerateKeypair(t *testing.T) {
	provider := NewED25519Provider()
	seed := []byte("test seed for ed25519")

	privateKey, publicKey, err := provider.GenerateKeypair(seed)
	require.NoError(t, err)

	_, err = hex.DecodeString(privateKey)
	require.NoError(t, err)
	_, err = hex.DecodeString(publicKey)
	require.NoError(t, err)

	assert.Equal(t, "ED", privateKey[:2])
	assert.Equal(t, "ED", publicKey[:2])
	assert.Len(t, publicKey, 66)

	// Derivation is deterministic
	privateKey2, publicKey2, err := provider.GenerateKeypair(seed)
	require.NoError(t, err)
	assert.Equal(t, privateKey, privateKey2)
	assert.Equal(t, publicKey, publicKey2)
}

func TestED25519SignAndVerify(t *testing.T) {
	provider := NewED25519Provider()
	message := []byte("test message")

	privateKey, publicKey, err := provider.GenerateKeypair([]byte("test seed for ed25519"))
	require.NoError(t, err)

	signature, err := provider.SignMessage(message, privateKey)
	require.NoError(t, err)

	assert.True(t, provider.VerifySignature(message, publicKey, signature))
	assert.False(t, provider.VerifySignature([]byte("wrong message"), publicKey, signature))

	_, otherPublic, err := provider.GenerateKeypair([]byte("another seed"))
	require.NoError(t, err)
	assert.False(t, provider.VerifySignature(message, otherPublic, signature))
}

func TestED25519InvalidKeys(t *testing.T) {
	provider := NewED25519Provider()

	_, err := provider.SignMessage([]byte("msg"), "not hex")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = provider.SignMessage([]byte("msg"), "ED00")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	assert.False(t, provider.VerifySignature([]byte("msg"), "ED00", "00"))
}
