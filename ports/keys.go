package ports

import (
	"context"

	"github.com/keyproof/keyproof/core"
)

// KeyRegistry resolves wire identifiers to registered credentials. Key
// enrollment and rotation live outside this service; the registry is a
// plain read surface over that external storage.
type KeyRegistry interface {
	// PasskeyPublicKey returns the COSE-encoded public key registered
	// for an account's key slot. Returns core.ErrUnknownIdentifier if
	// the account or slot has no key.
	PasskeyPublicKey(ctx context.Context, id core.Identifier) ([]byte, error)

	// AccountByAddress returns the account name linked to a chain
	// address. Returns core.ErrUnknownIdentifier if the address is not
	// registered.
	AccountByAddress(ctx context.Context, address string) (string, error)
}
