package messaging

import (
	"context"

	"go.uber.org/zap"
)

// PublisherInterface defines the contract for event publishing
// This allows for easy mocking in tests
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

// Ensure Publisher implements PublisherInterface
var _ PublisherInterface = (*Publisher)(nil)

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// Connect returns a broker publisher for rabbitmqURL, or a NoopPublisher
// when the URL is empty.
func Connect(rabbitmqURL string, log *zap.Logger) (PublisherInterface, error) {
	if rabbitmqURL == "" {
		return NoopPublisher{}, nil
	}
	p, err := NewPublisher(rabbitmqURL, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
