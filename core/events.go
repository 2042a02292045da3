package core

import (
	"context"
	"time"
)

// Routing keys of the domain events.
const (
	EventAccountFollowed   = "account.followed"
	EventAccountUnfollowed = "account.unfollowed"
	EventLevelChanged      = "level.changed"
)

type (
	Event struct {
		Type       string                 `json:"type"`
		AccountID  string                 `json:"account_id"`
		Payload    map[string]interface{} `json:"payload,omitempty"`
		OccurredAt time.Time              `json:"occurred_at"`
	}

	// EventPublisher publishes domain events. Publishing is best-effort: callers log failures.
	EventPublisher interface {
		Publish(ctx context.Context, evt Event) error
	}
)

func NewEvent(typ, accountID string, payload map[string]interface{}) Event {
	return Event{Type: typ, AccountID: accountID, Payload: payload, OccurredAt: time.Now().UTC()}
}
