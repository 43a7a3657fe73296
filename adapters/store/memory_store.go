package store

import (
	"context"
	"sync"
	"time"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore
// interface, suitable for tests and single-node deployments.
type MemoryStore struct {
	challenges map[string]*core.Challenge
	bySubject  map[string]string
	mu         sync.Mutex
}

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore() ports.ChallengeStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		bySubject:  make(map[string]string),
	}
}

// Create persists a challenge, dropping any outstanding challenge for
// the same subject so at most one is ever usable per subject.
func (s *MemoryStore) Create(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if challenge.Subject != "" {
		if oldID, ok := s.bySubject[challenge.Subject]; ok {
			delete(s.challenges, oldID)
		}
		s.bySubject[challenge.Subject] = challenge.ID
	}
	s.challenges[challenge.ID] = cloneChallenge(challenge)
	return nil
}

// Get returns the challenge for an id, consumed or not.
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[id]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	return cloneChallenge(challenge), nil
}

// GetBySubject returns the current challenge issued for a subject.
func (s *MemoryStore) GetBySubject(ctx context.Context, subject string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySubject[subject]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	challenge, ok := s.challenges[id]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	return cloneChallenge(challenge), nil
}

// Consume re-checks usability and sets the consumed timestamp under the
// same lock, so two racing calls cannot both succeed.
func (s *MemoryStore) Consume(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[id]
	if !ok {
		return core.ErrChallengeNotFound
	}
	if challenge.ConsumedAt != nil {
		return core.ErrChallengeConsumed
	}
	if challenge.Expired(now) {
		return core.ErrChallengeExpired
	}
	consumedAt := now
	challenge.ConsumedAt = &consumedAt
	return nil
}

func cloneChallenge(c *core.Challenge) *core.Challenge {
	clone := *c
	clone.Payload = append([]byte(nil), c.Payload...)
	if c.ConsumedAt != nil {
		t := *c.ConsumedAt
		clone.ConsumedAt = &t
	}
	return &clone
}
