// Package relay defines the core post model and the change-detection loop
// that turns "latest post per account" into at-most-once channel deliveries.
package relay

import (
	"context"
	"time"
)

// MediaKind classifies a normalized media element.
type MediaKind string

// Media kinds understood by the delivery gateway.
const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Media is a source-side media element. Sources populate whichever URL
// fields they have; resolution order is full, then preview, then generic.
// Type carries the source's explicit tag when present ("photo"/"video").
type Media struct {
	FullURL    string
	PreviewURL string
	URL        string
	Type       string
}

// Post is the single most recent post fetched for an account.
type Post struct {
	Account string
	ID      string
	Text    string
	Media   []Media

	// Raw is the source document the post was decoded from, archived to the
	// blob store when one is configured.
	Raw []byte
}

// MediaItem is a resolved, typed media reference in source order.
type MediaItem struct {
	Kind MediaKind
	URL  string
}

// Content is a normalized post ready for delivery.
type Content struct {
	Account string
	PostID  string
	Caption string
	Media   []MediaItem
}

// Outcome reports what happened to a delivery attempt. The watcher logs and
// counts it but never branches marker handling on it: the at-most-once
// policy is deliberate and visible here rather than buried in a catch-all.
type Outcome struct {
	// Attempted is false when delivery was skipped, e.g. no channel is set.
	Attempted bool
	Err       error
}

// Delivered reports whether the content actually reached the channel.
func (o Outcome) Delivered() bool {
	return o.Attempted && o.Err == nil
}

// Source fetches the single most recent post for an account. Transient
// failures surface as errors the watcher downgrades to a skipped cycle.
type Source interface {
	Latest(ctx context.Context, account string) (*Post, error)
}

// Gateway delivers normalized content. Implementations swallow their own
// transport errors and must never panic; the Outcome is informational.
type Gateway interface {
	SendText(ctx context.Context, channel, text string) Outcome
	SendMedia(ctx context.Context, channel string, media []MediaItem, caption string) Outcome
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces ids for archive rows and events.
type IDGenerator interface {
	NewID() (string, error)
}
