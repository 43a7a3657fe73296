package sigverify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyproof/keyproof/core"
)

func newP256Key(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func signPayload(t *testing.T, key *ecdsa.PrivateKey, payload []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(payload)
	der, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	require.NoError(t, err)
	sig, err := NormalizeDERSignature(der)
	require.NoError(t, err)
	return sig
}

func TestCOSEPublicKeyRoundTrip(t *testing.T) {
	key := newP256Key(t)

	cose, err := MarshalCOSEPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pub, err := ParseCOSEPublicKey(cose)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.X, pub.X)
	assert.Equal(t, key.PublicKey.Y, pub.Y)
}

func TestParseCOSEPublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParseCOSEPublicKey([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Error(t, err)
}

func TestVerifyPasskeySignature(t *testing.T) {
	key := newP256Key(t)
	payload := make([]byte, core.PayloadSize)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	sig := signPayload(t, key, payload)
	require.Len(t, sig, core.PasskeySignatureSize)

	assert.NoError(t, VerifyPasskeySignature(&key.PublicKey, payload, sig))
}

func TestVerifyPasskeySignatureWrongKey(t *testing.T) {
	key := newP256Key(t)
	other := newP256Key(t)
	payload := make([]byte, core.PayloadSize)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	sig := signPayload(t, key, payload)

	err = VerifyPasskeySignature(&other.PublicKey, payload, sig)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestVerifyPasskeySignatureBitFlip(t *testing.T) {
	key := newP256Key(t)
	payload := make([]byte, core.PayloadSize)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	sig := signPayload(t, key, payload)

	for i := range sig {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		err := VerifyPasskeySignature(&key.PublicKey, payload, flipped)
		assert.ErrorIs(t, err, core.ErrSignatureMismatch, "flipped byte %d", i)
	}
}

func TestVerifyPasskeySignatureBadLength(t *testing.T) {
	key := newP256Key(t)
	err := VerifyPasskeySignature(&key.PublicKey, []byte("payload"), make([]byte, 63))
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestNormalizeDERSignatureLowS(t *testing.T) {
	key := newP256Key(t)
	payload := []byte("some payload")

	// Normalized signatures must keep verifying; low-s is a canonical
	// form of the same signature.
	halfN := new(big.Int).Rsh(elliptic.P256().Params().N, 1)
	for i := 0; i < 16; i++ {
		sig := signPayload(t, key, payload)
		s := new(big.Int).SetBytes(sig[32:])
		assert.True(t, s.Cmp(halfN) <= 0, "s must be in the low half")
		assert.NoError(t, VerifyPasskeySignature(&key.PublicKey, payload, sig))
	}
}

func TestNormalizeDERSignatureRejectsTrailingBytes(t *testing.T) {
	key := newP256Key(t)
	digest := sha256.Sum256([]byte("payload"))
	der, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	require.NoError(t, err)

	_, err = NormalizeDERSignature(append(der, 0x00))
	assert.Error(t, err)
}
