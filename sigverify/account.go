package sigverify

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/keyproof/keyproof/core"
)

// AccountMessage builds the text a chain account signs: the preamble
// followed by the 0x-hex-encoded challenge payload.
func AccountMessage(preamble string, payload []byte) []byte {
	return []byte(preamble + hexutil.Encode(payload))
}

// RecoverAccountAddress recovers the signing address from a 65-byte
// compact r‖s‖v signature over the personal-sign hash of the account
// message. Recovery ids in both {0,1} and the tooling convention
// {27,28} are accepted.
func RecoverAccountAddress(preamble string, payload, sig []byte) (common.Address, error) {
	if len(sig) != core.AccountSignatureSize {
		return common.Address{}, fmt.Errorf("%w: account signature must be %d bytes, got %d",
			core.ErrSignatureMismatch, core.AccountSignatureSize, len(sig))
	}
	compact := make([]byte, len(sig))
	copy(compact, sig)
	if compact[64] >= 27 {
		compact[64] -= 27
	}
	digest := accounts.TextHash(AccountMessage(preamble, payload))
	pub, err := crypto.SigToPub(digest, compact)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", core.ErrSignatureMismatch, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyAccountSignature checks that a signature over the challenge
// payload recovers to the claimed address.
func VerifyAccountSignature(preamble string, payload, sig []byte, address common.Address) error {
	recovered, err := RecoverAccountAddress(preamble, payload, sig)
	if err != nil {
		return err
	}
	if recovered != address {
		return fmt.Errorf("%w: signature recovers to %s, identifier claims %s",
			core.ErrSignatureMismatch, recovered.Hex(), address.Hex())
	}
	return nil
}
