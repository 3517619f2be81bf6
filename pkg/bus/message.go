package bus

import "time"

// Message is a single record in a topic log. Messages are created by
// Topic.Send and never mutated afterwards; handlers must treat them as
// read-only.
type Message struct {
	// ID is unique and strictly increasing within a topic, starting at 0.
	ID int64

	// Payload is an opaque value supplied by the sender.
	Payload interface{}

	// Timestamp is the instant the message was appended.
	Timestamp time.Time
}

// Handler consumes a message. A non-nil error is logged by the bus and
// delivery continues to the remaining subscriptions.
type Handler func(*Message) error
