// Package blobs archives raw source payloads so a delivery can be replayed
// or debugged against the document it was decoded from.
package blobs

import "context"

// Provider writes raw artifacts and returns a URI.
type Provider interface {
	PutObject(ctx context.Context, path, contentType string, data []byte) (string, error)
	Close() error
}

// NoOpProvider discards payloads. Used when no blob backend is configured.
type NoOpProvider struct{}

// PutObject for NoOpProvider does nothing and returns an empty URI.
func (NoOpProvider) PutObject(_ context.Context, _, _ string, _ []byte) (string, error) {
	return "", nil
}

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }
