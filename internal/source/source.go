// Package source defines the fetch boundary shared by the probe and
// headless transports that back the post source.
package source

import "context"

// Response is the raw result of fetching a timeline URL.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a URL. Implementations return an error only for
// transport-level failures; HTTP-level rejections come back as a Response
// with the status set so callers can apply their blocked heuristic.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}
