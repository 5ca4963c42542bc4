package relay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tweetrelay/internal/archive"
	"tweetrelay/internal/blobs"
	"tweetrelay/internal/events"
	"tweetrelay/internal/state"
)

// DefaultSleepFloor bounds how tight the poll loop can spin even when the
// configured interval is smaller.
const DefaultSleepFloor = 30 * time.Second

// WatcherConfig controls Watcher behavior.
type WatcherConfig struct {
	// SleepFloor is the minimum time between cycles. Zero means
	// DefaultSleepFloor.
	SleepFloor time.Duration
}

// Watcher is the change detector: it walks the watch-list every cycle,
// fetches the latest post per account, and delivers anything newer than the
// stored marker. It is the availability backbone of the process; nothing a
// single account does may stop the loop.
type Watcher struct {
	state   *state.Manager
	source  Source
	gateway Gateway
	archive archive.Provider
	events  events.Publisher
	blobs   blobs.Provider
	ids     IDGenerator
	clock   Clock
	cfg     WatcherConfig
	logger  *zap.Logger
}

// NewWatcher constructs a Watcher.
func NewWatcher(
	st *state.Manager,
	source Source,
	gateway Gateway,
	archiveProvider archive.Provider,
	publisher events.Publisher,
	blobProvider blobs.Provider,
	ids IDGenerator,
	clock Clock,
	cfg WatcherConfig,
	logger *zap.Logger,
) *Watcher {
	if cfg.SleepFloor <= 0 {
		cfg.SleepFloor = DefaultSleepFloor
	}
	if archiveProvider == nil {
		archiveProvider = archive.NoOpProvider{}
	}
	if publisher == nil {
		publisher = events.NoOpPublisher{}
	}
	if blobProvider == nil {
		blobProvider = blobs.NoOpProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		state:   st,
		source:  source,
		gateway: gateway,
		archive: archiveProvider,
		events:  publisher,
		blobs:   blobProvider,
		ids:     ids,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run blocks, polling until the context finishes. The configured interval is
// a floor between cycle starts, not a ceiling: a slow cycle delays the next
// sleep rather than overlapping it.
func (w *Watcher) Run(ctx context.Context) {
	for {
		interval := w.Cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Cycle performs one pass over the watch-list and returns how long to sleep
// before the next one. Settings are re-read fresh each cycle so admin edits
// made mid-cycle are honored on the next.
func (w *Watcher) Cycle(ctx context.Context) time.Duration {
	start := w.clock.Now()
	settings := w.state.Settings()

	if settings.Paused {
		w.logger.Info("watcher paused")
	} else {
		accounts := dedupe(settings.Accounts)
		w.logger.Info("checking accounts", zap.Int("count", len(accounts)))
		for _, account := range accounts {
			if ctx.Err() != nil {
				break
			}
			w.checkAccount(ctx, settings, account)
		}
	}

	observeCycle(len(settings.Accounts), w.clock.Now().Sub(start))
	return w.sleepFor(settings.IntervalMinutes)
}

func (w *Watcher) sleepFor(intervalMinutes int) time.Duration {
	interval := time.Duration(intervalMinutes) * time.Minute
	if interval < w.cfg.SleepFloor {
		return w.cfg.SleepFloor
	}
	return interval
}

// checkAccount handles a single account. All failure modes are contained
// here: fetch errors skip the account for this cycle, delivery failures are
// logged with the marker still advancing, and a panic from bad input is
// recovered so the cycle survives.
func (w *Watcher) checkAccount(ctx context.Context, settings state.Settings, account string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("account check panicked",
				zap.String("account", account),
				zap.Any("panic", r),
			)
		}
	}()

	post, err := w.source.Latest(ctx, account)
	if err != nil {
		// Transient by assumption: the source gets blocked or flakes often.
		observeFetch("error")
		w.logger.Debug("fetch failed", zap.String("account", account), zap.Error(err))
		return
	}
	if post == nil || post.ID == "" {
		observeFetch("miss")
		return
	}
	observeFetch("ok")

	if marker, ok := w.state.Marker(account); ok && marker == post.ID {
		return
	}

	content := Normalize(*post)
	outcome := w.deliver(ctx, settings.Channel, content)
	observeDelivery(account, outcome)
	if outcome.Err != nil {
		// The marker still advances below; failed posts are not retried.
		w.logger.Warn("delivery failed",
			zap.String("account", account),
			zap.String("post_id", post.ID),
			zap.Error(outcome.Err),
		)
	}

	// Persist before the next account so a crash mid-cycle risks at most
	// one post.
	if err := w.state.SetMarker(account, post.ID); err != nil {
		w.logger.Error("marker update failed",
			zap.String("account", account),
			zap.String("post_id", post.ID),
			zap.Error(err),
		)
		return
	}

	w.record(ctx, settings.Channel, post, content, outcome)
}

func (w *Watcher) deliver(ctx context.Context, channel string, content Content) Outcome {
	if channel == "" {
		w.logger.Warn("channel not set, skipping delivery",
			zap.String("account", content.Account),
			zap.String("post_id", content.PostID),
		)
		return Outcome{}
	}
	if len(content.Media) == 0 {
		return w.gateway.SendText(ctx, channel, content.Caption)
	}
	return w.gateway.SendMedia(ctx, channel, content.Media, content.Caption)
}

// record archives the raw payload and the delivery row and publishes an
// event, all best-effort.
func (w *Watcher) record(ctx context.Context, channel string, post *Post, content Content, outcome Outcome) {
	blobURI := ""
	if len(post.Raw) > 0 {
		path := fmt.Sprintf("posts/%s/%s.json", state.ScreenName(post.Account), post.ID)
		uri, err := w.blobs.PutObject(ctx, path, "application/json", post.Raw)
		if err != nil {
			w.logger.Warn("payload archive failed", zap.String("post_id", post.ID), zap.Error(err))
		} else {
			blobURI = uri
		}
	}

	id, err := w.ids.NewID()
	if err != nil {
		w.logger.Warn("id generation failed", zap.Error(err))
		return
	}
	now := w.clock.Now()

	rec := archive.Record{
		ID:         id,
		Account:    post.Account,
		PostID:     post.ID,
		Channel:    channel,
		Caption:    content.Caption,
		MediaCount: len(content.Media),
		Delivered:  outcome.Delivered(),
		BlobURI:    blobURI,
		CreatedAt:  now,
	}
	if err := w.archive.Store(ctx, rec); err != nil {
		w.logger.Warn("history insert failed", zap.String("post_id", post.ID), zap.Error(err))
	}

	if _, err := w.events.Publish(ctx, events.PostDelivered{
		EventID:    id,
		Account:    post.Account,
		PostID:     post.ID,
		Channel:    channel,
		MediaCount: len(content.Media),
		Delivered:  outcome.Delivered(),
		At:         now,
	}); err != nil {
		w.logger.Warn("event publish failed", zap.String("post_id", post.ID), zap.Error(err))
	}
}

func dedupe(accounts []string) []string {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
