package syndication

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"tweetrelay/internal/source"
)

// FetcherConfig controls collector behavior.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements source.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           FetcherConfig
	baseCollector *colly.Collector
}

// NewFetcher builds a Fetcher with a pooled transport.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // JSON endpoint, not a crawl target
	c.AllowURLRevisit = true // the same timeline is polled every cycle
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET. Non-2xx responses are returned with the
// status populated rather than as errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (source.Response, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		result   source.Response
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		result = source.Response{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			result = source.Response{
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return source.Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return source.Response{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if result.StatusCode == 0 && err != nil {
			return source.Response{}, fmt.Errorf("visit %s: %w", url, err)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
