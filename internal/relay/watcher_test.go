package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetrelay/internal/archive"
	"tweetrelay/internal/events"
	"tweetrelay/internal/state"
)

type fakeSource struct {
	mu      sync.Mutex
	posts   map[string]*Post
	err     error
	fetches int
}

func (f *fakeSource) Latest(_ context.Context, account string) (*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[account], nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type sentText struct {
	channel string
	text    string
}

type sentMedia struct {
	channel string
	media   []MediaItem
	caption string
}

type fakeGateway struct {
	mu     sync.Mutex
	err    error
	texts  []sentText
	medias []sentMedia
}

func (f *fakeGateway) SendText(_ context.Context, channel, text string) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{channel: channel, text: text})
	return Outcome{Attempted: true, Err: f.err}
}

func (f *fakeGateway) SendMedia(_ context.Context, channel string, media []MediaItem, caption string) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.medias = append(f.medias, sentMedia{channel: channel, media: media, caption: caption})
	return Outcome{Attempted: true, Err: f.err}
}

func (f *fakeGateway) deliveries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts) + len(f.medias)
}

type fakeArchive struct {
	mu      sync.Mutex
	records []archive.Record
}

func (f *fakeArchive) Store(_ context.Context, rec archive.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeArchive) Close() {}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.PostDelivered
}

func (f *fakePublisher) Publish(_ context.Context, ev events.PostDelivered) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return "msg-1", nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type fakeIDGen struct{}

func (fakeIDGen) NewID() (string, error) { return "id-1", nil }

type watcherHarness struct {
	watcher *Watcher
	state   *state.Manager
	source  *fakeSource
	gateway *fakeGateway
	archive *fakeArchive
	events  *fakePublisher
}

func newHarness(t *testing.T, accounts []string, channel string) *watcherHarness {
	t.Helper()

	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mgr, err := state.NewManager(store, channel, nil)
	require.NoError(t, err)
	for _, a := range accounts {
		_, _, err := mgr.AddAccount(a)
		require.NoError(t, err)
	}

	src := &fakeSource{posts: map[string]*Post{}}
	gw := &fakeGateway{}
	arch := &fakeArchive{}
	pub := &fakePublisher{}

	w := NewWatcher(
		mgr,
		src,
		gw,
		arch,
		pub,
		nil,
		fakeIDGen{},
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		WatcherConfig{},
		nil,
	)
	return &watcherHarness{watcher: w, state: mgr, source: src, gateway: gw, archive: arch, events: pub}
}

func TestCycleDeliversNewPostOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@foo"}, "@news")
	h.source.posts["@foo"] = &Post{Account: "@foo", ID: "100", Text: "hello"}

	h.watcher.Cycle(context.Background())
	require.Equal(t, 1, h.gateway.deliveries())
	assert.Equal(t, sentText{channel: "@news", text: "New post from @foo:\n\nhello"}, h.gateway.texts[0])

	marker, ok := h.state.Marker("@foo")
	require.True(t, ok)
	assert.Equal(t, "100", marker)

	// Same post again: the marker prevents redelivery.
	h.watcher.Cycle(context.Background())
	assert.Equal(t, 1, h.gateway.deliveries())
	assert.Equal(t, 2, h.source.fetchCount())
}

func TestCycleDeliversMediaPost(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@foo"}, "@news")
	h.source.posts["@foo"] = &Post{
		Account: "@foo",
		ID:      "101",
		Text:    "pics",
		Media: []Media{
			{FullURL: "https://x/a.jpg"},
			{FullURL: "https://x/b.mp4"},
		},
	}

	h.watcher.Cycle(context.Background())
	require.Len(t, h.gateway.medias, 1)
	sent := h.gateway.medias[0]
	assert.Equal(t, "@news", sent.channel)
	assert.Equal(t, "New post from @foo:\n\npics", sent.caption)
	require.Len(t, sent.media, 2)
	assert.Equal(t, MediaPhoto, sent.media[0].Kind)
	assert.Equal(t, MediaVideo, sent.media[1].Kind)
}

func TestCycleAdvancesMarkerOnDeliveryFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@foo"}, "@news")
	h.gateway.err = errors.New("channel outage")
	h.source.posts["@foo"] = &Post{Account: "@foo", ID: "200", Text: "lost"}

	h.watcher.Cycle(context.Background())

	// At-most-once: the marker still advances past the failed post.
	marker, ok := h.state.Marker("@foo")
	require.True(t, ok)
	assert.Equal(t, "200", marker)

	require.Len(t, h.archive.records, 1)
	assert.False(t, h.archive.records[0].Delivered)
	require.Len(t, h.events.events, 1)
	assert.False(t, h.events.events[0].Delivered)
}

func TestCyclePausedSkipsFetchAndDelivery(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@foo"}, "@news")
	h.source.posts["@foo"] = &Post{Account: "@foo", ID: "300"}
	require.NoError(t, h.state.SetPaused(true))

	interval := h.watcher.Cycle(context.Background())

	assert.Zero(t, h.source.fetchCount())
	assert.Zero(t, h.gateway.deliveries())
	// The loop still sleeps its configured interval and re-checks.
	assert.Equal(t, time.Duration(state.DefaultIntervalMinutes)*time.Minute, interval)
}

func TestCycleSkipsFetchErrorsAndContinues(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@down", "@up"}, "@news")
	h.source.posts["@up"] = &Post{Account: "@up", ID: "400", Text: "still here"}
	h.source.posts["@down"] = nil // source returns no post for this one

	h.watcher.Cycle(context.Background())

	// The failing account is skipped silently; the healthy one delivers.
	require.Equal(t, 1, h.gateway.deliveries())
	_, ok := h.state.Marker("@down")
	assert.False(t, ok)
}

func TestCycleWithoutChannelSkipsDeliveryButAdvancesMarker(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@foo"}, "")
	h.source.posts["@foo"] = &Post{Account: "@foo", ID: "500", Text: "nowhere to go"}

	h.watcher.Cycle(context.Background())

	assert.Zero(t, h.gateway.deliveries())
	marker, ok := h.state.Marker("@foo")
	require.True(t, ok)
	assert.Equal(t, "500", marker)
	require.Len(t, h.archive.records, 1)
	assert.False(t, h.archive.records[0].Delivered)
}

func TestCycleRecoversFromPanickingSource(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"@boom", "@ok"}, "@news")
	h.source.posts["@ok"] = &Post{Account: "@ok", ID: "600", Text: "fine"}
	h.watcher.source = panickingSource{inner: h.source, panicOn: "@boom"}

	h.watcher.Cycle(context.Background())

	// The panic is contained to the account; the cycle finishes.
	assert.Equal(t, 1, h.gateway.deliveries())
}

type panickingSource struct {
	inner   Source
	panicOn string
}

func (p panickingSource) Latest(ctx context.Context, account string) (*Post, error) {
	if account == p.panicOn {
		panic("malformed payload")
	}
	return p.inner.Latest(ctx, account)
}

func TestSleepForHonorsFloor(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, "")
	assert.Equal(t, DefaultSleepFloor, h.watcher.sleepFor(0))
	assert.Equal(t, 3*time.Minute, h.watcher.sleepFor(3))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.watcher.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}
