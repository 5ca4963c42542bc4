package syndication

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetrelay/internal/relay"
	"tweetrelay/internal/source"
)

const sampleTimeline = `{
  "timeline": {
    "entries": [
      {"pinned": true, "post": {"id_str": "1", "full_text": "pinned post"}},
      {
        "post": {
          "id_str": "42",
          "full_text": "fresh content",
          "media": [
            {"full_url": "https://x/a.jpg"},
            {"preview_url": "https://x/b.jpg", "type": "video"}
          ]
        }
      },
      {"post": {"id_str": "41", "full_text": "older"}}
    ]
  }
}`

func TestLatestDecodesFirstNonPinnedEntry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "foo", r.URL.Query().Get("screen_name"))
		fmt.Fprint(w, sampleTimeline)
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetcherConfig{UserAgent: "tweetrelay-test", Timeout: 5 * time.Second})
	src := New(srv.URL, fetcher, nil, nil)

	post, err := src.Latest(context.Background(), "@foo")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "@foo", post.Account)
	assert.Equal(t, "42", post.ID)
	assert.Equal(t, "fresh content", post.Text)
	require.Len(t, post.Media, 2)
	assert.Equal(t, "https://x/a.jpg", post.Media[0].FullURL)
	assert.Equal(t, "video", post.Media[1].Type)
	assert.NotEmpty(t, post.Raw)
}

func TestLatestEmptyTimelineYieldsNoPost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"timeline": {"entries": []}}`)
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetcherConfig{Timeout: 5 * time.Second})
	src := New(srv.URL, fetcher, nil, nil)

	post, err := src.Latest(context.Background(), "quiet")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestLatestBlockedWithoutHeadlessFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetcherConfig{Timeout: 5 * time.Second})
	src := New(srv.URL, fetcher, nil, nil)

	_, err := src.Latest(context.Background(), "@blocked")
	require.Error(t, err)
}

type stubFetcher struct {
	resp    source.Response
	err     error
	fetches int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (source.Response, error) {
	s.fetches++
	return s.resp, s.err
}

func TestLatestPromotesBlockedProbeToHeadless(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: source.Response{StatusCode: http.StatusTooManyRequests}}
	fallback := &stubFetcher{resp: source.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"timeline":{"entries":[{"post":{"id_str":"7","full_text":"via headless"}}]}}`),
	}}

	src := New("https://api.example", probe, fallback, nil)

	post, err := src.Latest(context.Background(), "foo")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "7", post.ID)
	assert.Equal(t, 1, probe.fetches)
	assert.Equal(t, 1, fallback.fetches)
}

func TestLatestHeadlessFailureKeepsProbeError(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: source.Response{StatusCode: http.StatusForbidden}}
	fallback := &stubFetcher{err: fmt.Errorf("no browser")}

	src := New("https://api.example", probe, fallback, nil)

	_, err := src.Latest(context.Background(), "foo")
	require.Error(t, err)
}

func TestDecodeLatestRejectsMalformedDocument(t *testing.T) {
	t.Parallel()

	_, err := decodeLatest([]byte("not json"), "@foo")
	require.Error(t, err)
}

var _ relay.Source = (*Source)(nil)
