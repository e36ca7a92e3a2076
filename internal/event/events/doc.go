// Package events defines the event payload types and topics shared across
// the deck: panel attribute changes consumed by the hub, hover and zoom
// notifications consumed by the status line, and data lifecycle events.
//
// Payloads live here rather than in the panel or hub packages so either
// side can depend on them without depending on the other.
package events
