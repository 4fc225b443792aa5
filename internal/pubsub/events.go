// Package pubsub provides a generic publish/subscribe event system used to
// fan out workflow progress and log entries to listeners (SSE clients, CLI
// printers, tests).
package pubsub

import "time"

// EventType represents the type of event being published.
type EventType string

const (
	// CreatedEvent carries a new log entry.
	CreatedEvent EventType = "created"

	// Workflow run lifecycle.
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"

	// Per-node progress within a run.
	NodeProgressEvent EventType = "node.progress"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
