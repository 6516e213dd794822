// Package relay implements the state-synchronization core: the player state
// store, connection registry, event dispatcher and broadcast fan-out engine
// behind the WebSocket transport.
package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Relay is the composition root and session lifecycle manager. It owns the
// store, registry, dispatcher and broadcast engine, and serializes every
// mutate+broadcast step behind a single mutex so that record removal and
// registry removal are atomic from the perspective of any fan-out (the
// multi-threaded equivalent of cooperative run-to-completion handlers).
//
// The mutex never covers socket I/O: sends only enqueue into per-connection
// buffers, the transport's write pumps drain them outside the lock.
type Relay struct {
	mu        sync.Mutex
	store     *PlayerStateStore
	registry  *ConnectionRegistry
	broadcast *BroadcastEngine
	dispatch  *EventDispatcher
	log       *zap.SugaredLogger
}

// NewRelay wires the core components together
func NewRelay(log *zap.SugaredLogger) *Relay {
	store := NewPlayerStateStore()
	registry := NewConnectionRegistry()
	broadcast := NewBroadcastEngine(registry, log)
	r := &Relay{
		store:     store,
		registry:  registry,
		broadcast: broadcast,
		dispatch:  newEventDispatcher(store, registry, broadcast, log),
		log:       log,
	}
	r.dispatch.leave = r.leaveLocked
	return r
}

// Attach registers an accepted connection in the pre-connect state
func (r *Relay) Attach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry.Add(conn)
	updateGauges(r.registry.Len(), r.store.Len())
	r.log.Debugw("connection attached", "conn_id", conn.ID())
}

// HandleMessage decodes one inbound payload and runs its mutate+broadcast
// step. Malformed payloads and unrecognized kinds are discarded silently:
// the connection is not penalized and no reply is sent.
func (r *Relay) HandleMessage(conn Conn, payload []byte) {
	start := time.Now()
	ev, kind, ok := DecodeEvent(payload)
	if !ok {
		if kind == EventKindUnknown {
			recordDiscard("unknown_kind")
		} else {
			recordDiscard("malformed")
		}
		return
	}

	r.mu.Lock()
	r.dispatch.dispatch(conn, ev)
	updateGauges(r.registry.Len(), r.store.Len())
	r.mu.Unlock()

	observeDispatch(time.Since(start))
}

// Detach runs the session teardown for a closed stream and releases the
// registry entry. Safe to call after a graceful disconnect event: the
// departure bookkeeping below runs exactly once per connection.
func (r *Relay) Detach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn)
	r.registry.Remove(conn)
	updateGauges(r.registry.Len(), r.store.Len())
	r.log.Debugw("connection detached", "conn_id", conn.ID())
}

// leaveLocked performs, in order: unassociate -> remove record -> broadcast
// player_left excluding the leaving connection. Unassociate yields the bound
// id only to its first caller, which is what guards against a double
// player_left when a disconnect event is immediately followed by stream
// closure. Caller holds the relay mutex.
func (r *Relay) leaveLocked(conn Conn) {
	playerID, ok := r.registry.Unassociate(conn)
	if !ok {
		return
	}
	r.store.Remove(playerID)
	r.broadcast.Fanout(encodePlayerLeft(playerID), conn)
	r.log.Infow("player left", "player_id", playerID, "conn_id", conn.ID())
}

// Snapshot returns a copy of every active player record, for the read-only
// state endpoint.
func (r *Relay) Snapshot() []PlayerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.SnapshotExcluding("")
}

// Counts returns the current connection and player totals
func (r *Relay) Counts() (connections, players int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Len(), r.store.Len()
}

// CloseAll closes every live connection, used during process shutdown.
// Closing the sockets makes each read loop exit and call Detach, so the
// normal departure path still runs per connection.
func (r *Relay) CloseAll() {
	r.mu.Lock()
	conns := r.registry.LiveConnections(nil)
	r.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}
