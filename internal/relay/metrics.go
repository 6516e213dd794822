package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality: labels are event kinds and fixed discard
// reasons, never player or connection ids.
var (
	activePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_players_active",
		Help: "Current number of active player records",
	})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "Currently registered connections",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_total",
		Help: "Inbound events dispatched, by kind",
	}, []string{"kind"})

	discardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_discarded_total",
		Help: "Inbound payloads discarded at the decode boundary",
	}, []string{"reason"}) // Bounded: "malformed", "unknown_kind", "duplicate_connect"

	fanoutDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_fanout_delivered_total",
		Help: "Messages successfully enqueued to peers during fan-out",
	})

	fanoutPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_fanout_pruned_total",
		Help: "Peers pruned after a delivery failure mid fan-out",
	})

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_dispatch_duration_seconds",
		Help:    "Time spent in one decode-mutate-broadcast step",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
)

func recordEvent(kind EventKind) { eventsTotal.WithLabelValues(kind.String()).Inc() }

func recordDiscard(reason string) { discardedTotal.WithLabelValues(reason).Inc() }

func observeDispatch(d time.Duration) { dispatchDuration.Observe(d.Seconds()) }

func updateGauges(connections, players int) {
	activeConnections.Set(float64(connections))
	activePlayers.Set(float64(players))
}
