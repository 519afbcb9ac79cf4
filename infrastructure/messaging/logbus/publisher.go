// Package logbus publishes content events to the application log. It is
// used when no event bus is configured.
package logbus

import (
	"context"

	"portfolio/domain/events"

	"go.uber.org/zap"
)

// Publisher writes one log line per event
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a new log publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

// Publish logs the event and never fails
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Content event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}
