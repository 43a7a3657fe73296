package sigverify

import (
	"crypto/elliptic"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/keyproof/keyproof/core"
)

type derSignature struct {
	R, S *big.Int
}

// NormalizeDERSignature converts the variable-length ASN.1 signature a
// platform authenticator produces into the fixed-width r‖s pair the
// verifier expects. The s value is canonicalized to its low form so the
// wire signature is not malleable.
func NormalizeDERSignature(der []byte) ([]byte, error) {
	var sig derSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, fmt.Errorf("parse DER signature: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("parse DER signature: %d trailing bytes", len(rest))
	}
	if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, fmt.Errorf("parse DER signature: non-positive component")
	}
	n := elliptic.P256().Params().N
	if sig.R.Cmp(n) >= 0 || sig.S.Cmp(n) >= 0 {
		return nil, fmt.Errorf("parse DER signature: component out of range")
	}
	halfN := new(big.Int).Rsh(n, 1)
	if sig.S.Cmp(halfN) > 0 {
		sig.S = new(big.Int).Sub(n, sig.S)
	}
	out := make([]byte, core.PasskeySignatureSize)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return out, nil
}
