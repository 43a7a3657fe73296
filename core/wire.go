package core

import "fmt"

const (
	// PasskeySignatureSize is the fixed width of a normalized P-256
	// signature: 32-byte r followed by 32-byte s.
	PasskeySignatureSize = 64

	// AccountSignatureSize is the width of a compact secp256k1
	// signature: r‖s‖v.
	AccountSignatureSize = 65
)

// ChallengeResponse is what the issuer hands back to a client. The
// payload travels as hex; the server-side consumed state is never
// exposed.
type ChallengeResponse struct {
	ID        string `json:"id"`
	Challenge string `json:"challenge"`
}

// VerifyRequest carries a signed challenge back to the verifier.
type VerifyRequest struct {
	Method      RecoveryMethod
	ChallengeID string
	Identifier  string
	Signature   []byte
}

// EncodeSlotSignature prepends the key slot as a single byte to a
// fixed-width passkey signature. The slot is redundant with the textual
// identifier, but the verification capability takes raw signature bytes
// without side-channel metadata, so it must be carried in-band too.
func EncodeSlotSignature(slot uint8, sig []byte) []byte {
	out := make([]byte, len(sig)+1)
	out[0] = slot
	copy(out[1:], sig)
	return out
}

// DecodeSlotSignature splits a slot-prefixed passkey signature back
// into its key slot and signature bytes.
func DecodeSlotSignature(b []byte) (uint8, []byte, error) {
	if len(b) != PasskeySignatureSize+1 {
		return 0, nil, fmt.Errorf("%w: slot-prefixed signature must be %d bytes, got %d",
			ErrSignatureMismatch, PasskeySignatureSize+1, len(b))
	}
	return b[0], b[1:], nil
}
