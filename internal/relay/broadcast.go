package relay

import "go.uber.org/zap"

// BroadcastEngine delivers one message to every live connection except a
// designated exclusion. Delivery is best effort: a failing peer is pruned
// via MarkDead and the loop continues, so one broken socket never aborts
// delivery to the rest.
type BroadcastEngine struct {
	registry *ConnectionRegistry
	log      *zap.SugaredLogger
}

// NewBroadcastEngine creates a fan-out engine over the given registry
func NewBroadcastEngine(registry *ConnectionRegistry, log *zap.SugaredLogger) *BroadcastEngine {
	return &BroadcastEngine{registry: registry, log: log}
}

// Fanout attempts delivery to every live connection other than excluding
// (nil excludes nothing) and returns the number of successful enqueues.
// Caller holds the relay mutex, so the recipient set cannot change under
// the loop except through our own pruning.
func (b *BroadcastEngine) Fanout(payload []byte, excluding Conn) int {
	delivered := 0
	for _, conn := range b.registry.LiveConnections(excluding) {
		if err := conn.Send(payload); err != nil {
			b.registry.MarkDead(conn)
			fanoutPruned.Inc()
			b.log.Debugw("pruned peer after send failure", "conn_id", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	fanoutDelivered.Add(float64(delivered))
	return delivered
}

// SendTo delivers directly to a single connection, pruning it on failure.
// Used for the catch-up snapshot, which goes only to the new connection and
// is not retried on failure.
func (b *BroadcastEngine) SendTo(conn Conn, payload []byte) bool {
	if err := conn.Send(payload); err != nil {
		b.registry.MarkDead(conn)
		fanoutPruned.Inc()
		b.log.Debugw("pruned peer after direct send failure", "conn_id", conn.ID(), "error", err)
		return false
	}
	fanoutDelivered.Inc()
	return true
}
