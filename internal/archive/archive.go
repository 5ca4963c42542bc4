// Package archive records one row per delivery attempt so past relays can
// be audited after the fact. The poll loop treats it as best-effort: a
// failed insert is logged, never propagated.
package archive

import (
	"context"
	"time"
)

// Record is the persisted trace of a single delivery attempt.
type Record struct {
	ID         string
	Account    string
	PostID     string
	Channel    string
	Caption    string
	MediaCount int
	Delivered  bool
	BlobURI    string
	CreatedAt  time.Time
}

// Provider is the delivery-history persistence boundary.
type Provider interface {
	Store(ctx context.Context, record Record) error
	Close()
}

// NoOpProvider discards records. Used when no archive backend is configured.
type NoOpProvider struct{}

// Store for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Store(_ context.Context, _ Record) error { return nil }

// Close for NoOpProvider does nothing.
func (NoOpProvider) Close() {}
