// Package queue carries submission events from request handlers to the
// notification worker.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// EventContact is published after a contact form submission.
	EventContact = "submission.contact"
	// EventSample is published after a sample request.
	EventSample = "submission.sample"
	// EventNewsletter is published after a newsletter subscription.
	EventNewsletter = "newsletter.subscribe"
)

// DefaultTopic is the kafka topic used when none is configured.
var DefaultTopic = "coa.events"

type Event struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent encodes payload into an event of the given type.
func NewEvent(eventType, key string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Key: key, Payload: data, CreatedAt: time.Now().UTC()}, nil
}

type Queue interface {
	// Publish appends an event to the queue.
	Publish(ctx context.Context, event *Event) error
	// Poll returns up to max pending events without blocking for long. On
	// error it still returns the events read so far.
	Poll(ctx context.Context, max int) ([]*Event, error)
	Close() error
}
