// Package client holds the pieces a sign-in client composes: one
// encoder per recovery method turning "sign this challenge" into a wire
// signature plus identifier, and the orchestrator driving a single
// sign-in attempt end to end.
package client

import (
	"context"

	"github.com/keyproof/keyproof/core"
)

// ChallengeSigner turns a challenge payload into a method-specific wire
// signature and the identifier naming which registered key produced it.
type ChallengeSigner interface {
	// Method returns the recovery method tag this signer produces.
	Method() core.RecoveryMethod

	// SignChallenge obtains a signature over the payload. This is the
	// one suspension point of the whole flow: it blocks on user
	// interaction and is cancellable by the user or the platform.
	SignChallenge(ctx context.Context, payload []byte) (signature []byte, identifier string, err error)
}
