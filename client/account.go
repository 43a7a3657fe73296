package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/sigverify"
)

// AccountSigner is an externally-held blockchain account able to sign
// arbitrary text. The private key never touches this service; a wallet
// connection typically backs this interface.
type AccountSigner interface {
	Address() common.Address
	SignText(ctx context.Context, text []byte) ([]byte, error)
}

// AccountChallengeSigner encodes the account-signature recovery method:
// the account signs the preamble plus the hex challenge, and its
// address is the wire identifier.
type AccountChallengeSigner struct {
	signer   AccountSigner
	preamble string
}

// NewAccountChallengeSigner creates an account challenge signer. The
// preamble must match the verifier's configuration.
func NewAccountChallengeSigner(signer AccountSigner, preamble string) *AccountChallengeSigner {
	return &AccountChallengeSigner{signer: signer, preamble: preamble}
}

// Method returns core.MethodAccountSignature
func (a *AccountChallengeSigner) Method() core.RecoveryMethod {
	return core.MethodAccountSignature
}

// SignChallenge asks the account to sign the challenge text. A wallet
// rejection is surfaced as core.ErrUserCancelled, like a declined
// passkey prompt.
func (a *AccountChallengeSigner) SignChallenge(ctx context.Context, payload []byte) ([]byte, string, error) {
	sig, err := a.signer.SignText(ctx, sigverify.AccountMessage(a.preamble, payload))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", core.ErrUserCancelled, err)
	}
	if len(sig) != core.AccountSignatureSize {
		return nil, "", fmt.Errorf("account signature must be %d bytes, got %d",
			core.AccountSignatureSize, len(sig))
	}
	return sig, a.signer.Address().Hex(), nil
}

// LocalAccountSigner signs with an in-process secp256k1 key. Meant for
// tests and tooling; real clients sign through a wallet.
type LocalAccountSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalAccountSigner wraps a raw private key
func NewLocalAccountSigner(key *ecdsa.PrivateKey) *LocalAccountSigner {
	return &LocalAccountSigner{key: key}
}

// Address returns the key's address
func (l *LocalAccountSigner) Address() common.Address {
	return crypto.PubkeyToAddress(l.key.PublicKey)
}

// SignText produces a compact personal-sign signature with the
// recovery id in the {27,28} convention wallets use.
func (l *LocalAccountSigner) SignText(ctx context.Context, text []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(text), l.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
