// Package syndication implements the post source against a JSON timeline
// endpoint, with an optional headless fallback for blocked probe fetches.
package syndication

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"tweetrelay/internal/relay"
	"tweetrelay/internal/source"
	"tweetrelay/internal/state"
)

// Source fetches the latest post for an account from the timeline endpoint.
type Source struct {
	baseURL  string
	probe    source.Fetcher
	headless source.Fetcher
	logger   *zap.Logger
}

// New constructs a Source. The headless fetcher may be nil, in which case
// blocked probes simply fail for the cycle.
func New(baseURL string, probe, headless source.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		baseURL:  baseURL,
		probe:    probe,
		headless: headless,
		logger:   logger,
	}
}

// Latest implements relay.Source. A probe response that looks blocked is
// retried once through the headless fetcher before giving up.
func (s *Source) Latest(ctx context.Context, account string) (*relay.Post, error) {
	name := state.ScreenName(account)
	if name == "" {
		return nil, fmt.Errorf("empty account")
	}
	endpoint := fmt.Sprintf("%s/timeline/profile?screen_name=%s", s.baseURL, url.QueryEscape(name))

	resp, err := s.probe.Fetch(ctx, endpoint)
	if (err != nil || blocked(resp)) && s.headless != nil {
		s.logger.Debug("probe blocked, promoting to headless",
			zap.String("account", account),
			zap.Int("status", resp.StatusCode),
		)
		if headlessResp, headlessErr := s.headless.Fetch(ctx, endpoint); headlessErr == nil {
			resp, err = headlessResp, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch timeline for %s: %w", account, err)
	}
	if blocked(resp) {
		return nil, fmt.Errorf("timeline for %s blocked: status %d", account, resp.StatusCode)
	}

	post, err := decodeLatest(resp.Body, state.CanonicalAccount(account))
	if err != nil {
		return nil, fmt.Errorf("timeline for %s: %w", account, err)
	}
	return post, nil
}

// blocked is the heuristic for anti-scraping rejections: an explicit
// forbidden/rate-limited status, any other non-2xx, or an empty body.
func blocked(resp source.Response) bool {
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return true
	}
	return len(resp.Body) == 0
}
