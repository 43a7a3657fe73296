package keys

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/ports"
)

// MemoryRegistry is an in-memory KeyRegistry. Enrollment happens
// outside this service; the embedding application seeds the registry
// with the credentials it already holds.
type MemoryRegistry struct {
	passkeys  map[string][]byte // "<account>.<slot>" -> COSE public key
	addresses map[string]string // lowercase hex address -> account name
	mu        sync.RWMutex
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		passkeys:  make(map[string][]byte),
		addresses: make(map[string]string),
	}
}

// RegisterPasskey stores the COSE public key for an account's key slot
func (r *MemoryRegistry) RegisterPasskey(id core.Identifier, cosePublicKey []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passkeys[id.String()] = append([]byte(nil), cosePublicKey...)
}

// RegisterAddress links a chain address to an account name
func (r *MemoryRegistry) RegisterAddress(address common.Address, accountName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[strings.ToLower(address.Hex())] = accountName
}

// PasskeyPublicKey returns the COSE key registered for the identifier
func (r *MemoryRegistry) PasskeyPublicKey(ctx context.Context, id core.Identifier) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.passkeys[id.String()]
	if !ok {
		return nil, core.ErrUnknownIdentifier
	}
	return append([]byte(nil), key...), nil
}

// AccountByAddress returns the account linked to a chain address
func (r *MemoryRegistry) AccountByAddress(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", core.ErrInvalidIdentifier
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.addresses[strings.ToLower(common.HexToAddress(address).Hex())]
	if !ok {
		return "", core.ErrUnknownIdentifier
	}
	return account, nil
}

var _ ports.KeyRegistry = (*MemoryRegistry)(nil)
