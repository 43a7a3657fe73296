package client

import (
	"context"
	"fmt"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/sigverify"
)

// CredentialDescriptor describes a previously-seen credential, letting
// the platform narrow its picker on devices with several enrolled keys.
type CredentialDescriptor struct {
	ID   []byte
	Name string
}

// Assertion is what the platform hands back after the user approves a
// signing prompt. The user handle carries "<accountName>.<keySlot>"
// encoded at enrollment time; the signature is in the platform's
// variable-length ASN.1 form.
type Assertion struct {
	UserHandle   string
	DERSignature []byte
}

// AssertionPrompter is the platform's public-key-credential signing
// capability. It is external to this protocol: it owns the prompt UI,
// the timeout, and the credential selection.
type AssertionPrompter interface {
	PromptAssertion(ctx context.Context, payload []byte, allowed []CredentialDescriptor) (*Assertion, error)
}

// PasskeySigner encodes the passkey recovery method: it invokes the
// platform prompt, recovers the account name and key slot from the
// assertion's user handle, and normalizes the signature to the
// fixed-width form the verifier expects, slot byte first.
type PasskeySigner struct {
	prompter AssertionPrompter
	allowed  []CredentialDescriptor
}

// NewPasskeySigner creates a passkey signer. The allowed list is
// optional and only guides credential selection.
func NewPasskeySigner(prompter AssertionPrompter, allowed []CredentialDescriptor) *PasskeySigner {
	return &PasskeySigner{prompter: prompter, allowed: allowed}
}

// Method returns core.MethodPasskey
func (p *PasskeySigner) Method() core.RecoveryMethod {
	return core.MethodPasskey
}

// SignChallenge prompts the platform for an assertion over the payload.
// Any prompt failure — cancellation, policy denial, timeout, no
// matching credential — surfaces as core.ErrUserCancelled; the platform
// error text is not contractually stable and is not distinguished.
func (p *PasskeySigner) SignChallenge(ctx context.Context, payload []byte) ([]byte, string, error) {
	assertion, err := p.prompter.PromptAssertion(ctx, payload, p.allowed)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", core.ErrUserCancelled, err)
	}

	id, err := core.ParseIdentifier(assertion.UserHandle)
	if err != nil {
		return nil, "", fmt.Errorf("assertion user handle: %w", err)
	}

	sig, err := sigverify.NormalizeDERSignature(assertion.DERSignature)
	if err != nil {
		return nil, "", fmt.Errorf("normalize assertion signature: %w", err)
	}

	return core.EncodeSlotSignature(id.KeySlot, sig), id.String(), nil
}
