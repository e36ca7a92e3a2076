package event

import (
	"sort"
	"sync"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// Registry holds subscriptions indexed by topic pattern. Safe for concurrent
// use; events can be published while subscriptions are added or removed.
type Registry struct {
	mu      sync.RWMutex
	subs    map[topic.Topic][]*subscription
	byID    map[string]*subscription
	matcher *topic.Matcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:    make(map[topic.Topic][]*subscription),
		byID:    make(map[string]*subscription),
		matcher: topic.NewMatcher(),
	}
}

// Add registers a subscription under its topic pattern, keeping the
// per-pattern list sorted by priority (lower values first).
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pattern := sub.Topic()

	subs := append(r.subs[pattern], sub)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].Config().Priority < subs[j].Config().Priority
	})
	r.subs[pattern] = subs

	r.byID[sub.ID()] = sub
	r.matcher.Add(pattern)
}

// Remove unregisters a subscription by ID. Returns false if unknown.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	pattern := sub.Topic()
	subs := r.subs[pattern]
	for i, s := range subs {
		if s.ID() == subID {
			r.subs[pattern] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(r.subs[pattern]) == 0 {
		delete(r.subs, pattern)
		r.matcher.Remove(pattern)
	}

	delete(r.byID, subID)
	return true
}

// Get returns a subscription by ID.
func (r *Registry) Get(subID string) (*subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.byID[subID]
	return sub, exists
}

// Match returns every subscription whose pattern matches the event topic,
// sorted by priority across all matching patterns. The returned slice is a
// snapshot; handlers may subscribe or unsubscribe during dispatch without
// racing the caller's iteration.
func (r *Registry) Match(eventTopic topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := r.matcher.Match(eventTopic)
	if len(patterns) == 0 {
		return nil
	}

	var all []*subscription
	for _, pattern := range patterns {
		all = append(all, r.subs[pattern]...)
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Config().Priority < all[j].Config().Priority
	})
	return all
}

// MatchActive returns matching subscriptions that are currently active.
func (r *Registry) MatchActive(eventTopic topic.Topic) []*subscription {
	all := r.Match(eventTopic)
	if len(all) == 0 {
		return nil
	}

	result := make([]*subscription, 0, len(all))
	for _, sub := range all {
		if sub.IsActive() {
			result = append(result, sub)
		}
	}
	return result
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Clear cancels and removes every subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.byID {
		sub.Cancel()
	}
	r.subs = make(map[topic.Topic][]*subscription)
	r.byID = make(map[string]*subscription)
	r.matcher = topic.NewMatcher()
}
