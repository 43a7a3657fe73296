package ports

import (
	"context"
	"time"

	"github.com/keyproof/keyproof/core"
)

// ChallengeStore persists issued challenges.
//
// Implementations must make Consume atomic: of two concurrent Consume
// calls for the same id, exactly one succeeds and the other observes
// core.ErrChallengeConsumed.
type ChallengeStore interface {
	// Create persists a new challenge. If the challenge carries a
	// subject, any prior un-consumed challenge for that subject is
	// invalidated so at most one is outstanding.
	Create(ctx context.Context, challenge *core.Challenge) error

	// Get returns the challenge for an id, consumed or not.
	// Returns core.ErrChallengeNotFound if no row exists.
	Get(ctx context.Context, id string) (*core.Challenge, error)

	// GetBySubject returns the current challenge issued for a subject.
	// Returns core.ErrChallengeNotFound if none is outstanding.
	GetBySubject(ctx context.Context, subject string) (*core.Challenge, error)

	// Consume marks a challenge as used in a single atomic step,
	// re-checking existence, expiry and the consumed flag. Returns
	// core.ErrChallengeNotFound, core.ErrChallengeExpired or
	// core.ErrChallengeConsumed accordingly.
	Consume(ctx context.Context, id string, now time.Time) error
}
