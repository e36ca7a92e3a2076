package event

import "github.com/dshills/trackdeck/internal/event/topic"

// Common filter predicates for subscriptions.

// eventSource extracts the metadata source from an event, if any.
func eventSource(event any) string {
	if mp, ok := event.(MetadataProvider); ok {
		return mp.EventMetadata().Source
	}
	if env, ok := event.(Envelope); ok {
		return env.Metadata.Source
	}
	return ""
}

// FilterBySource allows only events published by the given source.
func FilterBySource(source string) FilterFunc {
	return func(event any) bool {
		return eventSource(event) == source
	}
}

// FilterExcludeSource rejects events published by the given source. Useful
// for observers that must not react to their own emissions.
func FilterExcludeSource(source string) FilterFunc {
	return func(event any) bool {
		return eventSource(event) != source
	}
}

// FilterByTopic allows only events whose topic matches the pattern. Useful
// for narrowing a wildcard subscription further.
func FilterByTopic(pattern topic.Topic) FilterFunc {
	return func(event any) bool {
		t := extractTopic(event)
		return t != "" && t.Matches(pattern)
	}
}
