package sigverify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/keyproof/keyproof/core"
)

// ParseCOSEPublicKey decodes a COSE-encoded credential public key into
// a P-256 ECDSA key. Only EC2/ES256 keys are accepted, which is what
// platform authenticators produce.
func ParseCOSEPublicKey(data []byte) (*ecdsa.PublicKey, error) {
	parsed, err := webauthncose.ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse COSE public key: %w", err)
	}
	ec2, ok := parsed.(webauthncose.EC2PublicKeyData)
	if !ok {
		return nil, fmt.Errorf("credential public key is not an EC2 key")
	}
	if webauthncose.COSEAlgorithmIdentifier(ec2.Algorithm) != webauthncose.AlgES256 {
		return nil, fmt.Errorf("unsupported COSE algorithm %d", ec2.Algorithm)
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(ec2.XCoord),
		Y:     new(big.Int).SetBytes(ec2.YCoord),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("credential public key is not on P-256")
	}
	return pub, nil
}

// MarshalCOSEPublicKey encodes a P-256 key in the COSE form the
// registry stores. Used by embedding applications when seeding keys and
// by tests.
func MarshalCOSEPublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	if pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("only P-256 keys are supported")
	}
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	key := webauthncose.EC2PublicKeyData{
		PublicKeyData: webauthncose.PublicKeyData{
			KeyType:   int64(webauthncose.EllipticKey),
			Algorithm: int64(webauthncose.AlgES256),
		},
		Curve:  int64(webauthncose.P256),
		XCoord: x,
		YCoord: y,
	}
	return cbor.Marshal(key)
}

// VerifyPasskeySignature checks a fixed-width r‖s signature over the
// SHA-256 digest of the challenge payload against a credential key.
func VerifyPasskeySignature(pub *ecdsa.PublicKey, payload, sig []byte) error {
	if len(sig) != core.PasskeySignatureSize {
		return fmt.Errorf("%w: passkey signature must be %d bytes, got %d",
			core.ErrSignatureMismatch, core.PasskeySignatureSize, len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	digest := sha256.Sum256(payload)
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return core.ErrSignatureMismatch
	}
	return nil
}
