package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// Event is a typed event. Events are immutable once created.
type Event[T any] struct {
	// Type is the hierarchical event topic (e.g. "panel.attr.changed").
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata is attached to every event.
type Metadata struct {
	// ID uniquely identifies this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the publisher, e.g. a panel ID or "hub".
	Source string
}

// NewEvent creates an event with the given topic and payload.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        generateID(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by types that can report their topic.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// MetadataProvider is implemented by types that can report their metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}

// generateID returns a unique event or subscription ID.
func generateID() string {
	return uuid.NewString()
}

// Envelope wraps a payload for type-erased handling, used when the publisher
// and subscriber do not share a concrete event type.
type Envelope struct {
	// Topic is the event topic.
	Topic topic.Topic

	// Payload is the type-erased event payload.
	Payload any

	// Metadata is the event metadata.
	Metadata Metadata
}

// NewEnvelope converts a typed event into an envelope.
func NewEnvelope[T any](e Event[T]) Envelope {
	return Envelope{
		Topic:    e.Type,
		Payload:  e.Payload,
		Metadata: e.Metadata,
	}
}

// ToEnvelope converts any TopicProvider into an Envelope. Returns a zero
// Envelope when the value cannot provide a topic.
func ToEnvelope(event any) Envelope {
	if env, ok := event.(Envelope); ok {
		return env
	}

	tp, ok := event.(TopicProvider)
	if !ok {
		return Envelope{}
	}

	env := Envelope{
		Topic:   tp.EventTopic(),
		Payload: event,
	}
	if mp, ok := event.(MetadataProvider); ok {
		env.Metadata = mp.EventMetadata()
	}
	return env
}
