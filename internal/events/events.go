// Package events publishes delivered-post notifications for downstream
// consumers. Publishing is best-effort from the poll loop's perspective.
package events

import (
	"context"
	"time"
)

// PostDelivered is the payload published after each delivery attempt.
type PostDelivered struct {
	EventID    string    `json:"event_id"`
	Account    string    `json:"account"`
	PostID     string    `json:"post_id"`
	Channel    string    `json:"channel"`
	MediaCount int       `json:"media_count"`
	Delivered  bool      `json:"delivered"`
	At         time.Time `json:"at"`
}

// Publisher pushes events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event PostDelivered) (string, error)
	Close() error
}

// NoOpPublisher discards events. Used when no broker is configured.
type NoOpPublisher struct{}

// Publish for NoOpPublisher does nothing and returns a dummy id.
func (NoOpPublisher) Publish(_ context.Context, _ PostDelivered) (string, error) {
	return "noop-event-id", nil
}

// Close for NoOpPublisher does nothing and returns nil.
func (NoOpPublisher) Close() error { return nil }
