package relay

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayCyclesTotal           prometheus.Counter
	relayFetchesTotal          *prometheus.CounterVec
	relayPostsDeliveredTotal   *prometheus.CounterVec
	relayDeliveryFailuresTotal prometheus.Counter
	relayWatchedAccounts       prometheus.Gauge
	relayCycleDurationSeconds  prometheus.Histogram

	metricsOnce sync.Once
)

// InitMetrics registers the relay Prometheus collectors. Safe to call more
// than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		relayCyclesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_cycles_total",
				Help: "Total number of completed poll cycles.",
			},
		)

		relayFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_fetches_total",
				Help: "Total latest-post fetches, labeled by result.",
			},
			[]string{"result"},
		)

		relayPostsDeliveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_posts_delivered_total",
				Help: "Total posts relayed to the channel, labeled by account.",
			},
			[]string{"account"},
		)

		relayDeliveryFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_delivery_failures_total",
				Help: "Total delivery attempts that failed in the gateway.",
			},
		)

		relayWatchedAccounts = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_watched_accounts",
				Help: "Number of accounts currently on the watch-list.",
			},
		)

		relayCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_cycle_duration_seconds",
				Help:    "Histogram of poll cycle wall time.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180},
			},
		)
	})
}

func observeCycle(accounts int, took time.Duration) {
	if relayCyclesTotal == nil {
		return
	}
	relayCyclesTotal.Inc()
	relayWatchedAccounts.Set(float64(accounts))
	relayCycleDurationSeconds.Observe(took.Seconds())
}

func observeFetch(result string) {
	if relayFetchesTotal == nil {
		return
	}
	relayFetchesTotal.WithLabelValues(result).Inc()
}

func observeDelivery(account string, outcome Outcome) {
	if relayPostsDeliveredTotal == nil {
		return
	}
	if outcome.Delivered() {
		relayPostsDeliveredTotal.WithLabelValues(account).Inc()
	}
	if outcome.Err != nil {
		relayDeliveryFailuresTotal.Inc()
	}
}
