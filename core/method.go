package core

// RecoveryMethod tags the proof-of-possession scheme a signature was
// produced with. The tag decides the shape of the signature payload and
// the verification rule applied to it.
type RecoveryMethod string

const (
	// MethodPasskey is a platform public-key credential assertion. The
	// wire signature carries the key slot in its first byte followed by
	// a fixed-width P-256 r‖s pair.
	MethodPasskey RecoveryMethod = "PASSKEY"

	// MethodAccountSignature is a raw secp256k1 signature from an
	// externally-held blockchain account, verified by public-key
	// recovery against the claimed address.
	MethodAccountSignature RecoveryMethod = "ACCOUNT_SIGNATURE"
)

// Valid reports whether the tag is one of the supported methods.
func (m RecoveryMethod) Valid() bool {
	switch m {
	case MethodPasskey, MethodAccountSignature:
		return true
	}
	return false
}

func (m RecoveryMethod) String() string {
	return string(m)
}
