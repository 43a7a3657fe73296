package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/ports"
)

// RecoveredEvent is published when an account proves key possession
type RecoveredEvent struct {
	Subject     string `json:"subject"`
	Method      string `json:"method"`
	ChallengeID string `json:"challenge_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "auth.recovered",
	}
}

// PublishRecovered publishes a recovery event
func (p *WatermillPublisher) PublishRecovered(ctx context.Context, subject string, method core.RecoveryMethod, challengeID string) error {
	event := RecoveredEvent{
		Subject:     subject,
		Method:      method.String(),
		ChallengeID: challengeID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(challengeID, payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
