package ports

import (
	"context"

	"github.com/keyproof/keyproof/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishRecovered(ctx context.Context, subject string, method core.RecoveryMethod, challengeID string) error
}
