// Package topic provides hierarchical topic names and pattern matching for
// the event bus.
//
// Topics use dot notation to create namespaces:
//
//	panel.attr.changed
//	panel.hover
//	data.reloaded
//	deck.snapshot
//
// Subscription patterns may use two wildcards: "*" matches exactly one
// segment and "**" matches zero or more, so "panel.*" matches "panel.hover"
// but not "panel.attr.changed", while "panel.**" matches both.
//
// The Matcher indexes patterns in a trie, giving O(k) matching in the number
// of topic segments regardless of how many patterns are registered.
package topic
