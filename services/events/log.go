package eventsvc

import (
	"context"

	"github.com/wordwise/backend/core"
)

// LogPublisher writes events to the logger at debug level and keeps nothing.
// It stands in for RabbitMQ when the broker is disabled.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (pub *LogPublisher) Publish(_ context.Context, evt core.Event) error {
	pub.logger.Debug("event "+evt.Type, map[string]interface{}{
		"account_id":  evt.AccountID,
		"payload":     evt.Payload,
		"occurred_at": evt.OccurredAt,
	})
	return nil
}
