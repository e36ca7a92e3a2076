package topic

import "sync"

// Matcher indexes subscription patterns in a trie so an event topic can be
// matched against every registered pattern in one walk. Safe for concurrent
// use.
type Matcher struct {
	mu   sync.RWMutex
	root *patternNode
}

// patternNode is one trie level; a segment maps to the next level and
// patterns records every pattern that terminates here.
type patternNode struct {
	children map[string]*patternNode
	patterns []Topic
}

func newPatternNode() *patternNode {
	return &patternNode{children: make(map[string]*patternNode)}
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newPatternNode()}
}

// Add registers a pattern. The pattern may contain * and ** wildcards.
// Adding the same pattern twice is a no-op.
func (m *Matcher) Add(pattern Topic) {
	if pattern == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newPatternNode()
		}
		node = node.children[seg]
	}

	for _, p := range node.patterns {
		if p == pattern {
			return
		}
	}
	node.patterns = append(node.patterns, pattern)
}

// Remove unregisters a pattern. Unknown patterns are ignored.
func (m *Matcher) Remove(pattern Topic) {
	if pattern == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			return
		}
		node = node.children[seg]
	}

	for i, p := range node.patterns {
		if p == pattern {
			node.patterns = append(node.patterns[:i], node.patterns[i+1:]...)
			break
		}
	}
}

// Has reports whether the exact pattern is registered.
func (m *Matcher) Has(pattern Topic) bool {
	if pattern == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			return false
		}
		node = node.children[seg]
	}

	for _, p := range node.patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// Match returns every registered pattern that matches the given event topic.
// The topic is a concrete event name and must not contain wildcards.
func (m *Matcher) Match(eventTopic Topic) []Topic {
	if eventTopic == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Topic
	m.walk(m.root, eventTopic.Segments(), 0, &matches)
	return matches
}

func (m *Matcher) walk(node *patternNode, segments []string, depth int, matches *[]Topic) {
	if node == nil {
		return
	}

	if depth == len(segments) {
		*matches = append(*matches, node.patterns...)

		// A trailing ** may match zero further segments.
		if child := node.children[WildcardMulti]; child != nil {
			m.walk(child, segments, depth, matches)
		}
		return
	}

	if child := node.children[segments[depth]]; child != nil {
		m.walk(child, segments, depth+1, matches)
	}

	if child := node.children[WildcardSingle]; child != nil {
		m.walk(child, segments, depth+1, matches)
	}

	if child := node.children[WildcardMulti]; child != nil {
		// ** may consume any number of the remaining segments.
		for i := depth; i <= len(segments); i++ {
			m.walk(child, segments, i, matches)
		}
	}
}

// Patterns returns every registered pattern in no particular order.
func (m *Matcher) Patterns() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var patterns []Topic
	collect(m.root, &patterns)
	return patterns
}

func collect(node *patternNode, patterns *[]Topic) {
	if node == nil {
		return
	}
	*patterns = append(*patterns, node.patterns...)
	for _, child := range node.children {
		collect(child, patterns)
	}
}
