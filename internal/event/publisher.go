package event

import (
	"context"
	"time"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// timeNow is a variable so tests can pin timestamps.
var timeNow = time.Now

// Publisher is a source-bound publishing handle. Each panel holds one so
// every event it emits carries the panel's ID as the source, which is what
// lets the hub skip the origin during reflection.
type Publisher struct {
	bus    Bus
	source string
}

// NewPublisher creates a Publisher bound to a source identifier.
func NewPublisher(bus Bus, source string) *Publisher {
	return &Publisher{
		bus:    bus,
		source: source,
	}
}

// Source returns the bound source identifier.
func (p *Publisher) Source() string {
	return p.source
}

// Publish wraps the payload in an Envelope and delivers it synchronously.
func (p *Publisher) Publish(ctx context.Context, eventType topic.Topic, payload any) error {
	return p.bus.Publish(ctx, p.envelope(eventType, payload))
}

// PublishAsync wraps the payload in an Envelope and queues it.
func (p *Publisher) PublishAsync(ctx context.Context, eventType topic.Topic, payload any) error {
	return p.bus.PublishAsync(ctx, p.envelope(eventType, payload))
}

func (p *Publisher) envelope(eventType topic.Topic, payload any) Envelope {
	return Envelope{
		Topic:   eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        generateID(),
			Timestamp: timeNow(),
			Source:    p.source,
		},
	}
}
