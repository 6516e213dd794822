package relay

import (
	"errors"

	"go.uber.org/zap"
)

// EventDispatcher routes each decoded event to its state mutation and
// broadcast. All handlers run under the relay mutex (see Relay), so a
// mutate+broadcast step is atomic with respect to every other connection's
// events and to lifecycle teardown.
type EventDispatcher struct {
	store     *PlayerStateStore
	registry  *ConnectionRegistry
	broadcast *BroadcastEngine
	log       *zap.SugaredLogger

	// leave runs the exactly-once session teardown for a connection;
	// wired by the Relay so graceful disconnect and abrupt closure share
	// one path.
	leave func(Conn)
}

func newEventDispatcher(store *PlayerStateStore, registry *ConnectionRegistry, broadcast *BroadcastEngine, log *zap.SugaredLogger) *EventDispatcher {
	return &EventDispatcher{store: store, registry: registry, broadcast: broadcast, log: log}
}

// dispatch routes one event from the given connection. Caller holds the
// relay mutex.
func (d *EventDispatcher) dispatch(sender Conn, ev Event) {
	recordEvent(ev.Kind())

	switch ev := ev.(type) {
	case ConnectEvent:
		d.handleConnect(sender, ev)
	case UpdatePositionEvent:
		d.handleUpdatePosition(sender, ev)
	case UpdateEnemyPositionEvent:
		d.handleUpdateEnemyPosition(sender, ev)
	case FireEvent:
		d.handleFire(sender, ev)
	case DamageEvent:
		d.handleDamage(sender, ev)
	case ExternalMoveEvent:
		d.handleExternalMove(sender, ev)
	case DisconnectEvent:
		d.leave(sender)
	}
}

// handleConnect is two-step and order-sensitive: the catch-up snapshot for
// the new connection is computed excluding its own just-inserted record and
// sent directly, independent of the new_player fan-out to existing peers.
// A failed snapshot delivery is not retried.
func (d *EventDispatcher) handleConnect(sender Conn, ev ConnectEvent) {
	if err := d.registry.Associate(sender, ev.PlayerID); err != nil {
		var assocErr *AlreadyAssociatedError
		if errors.As(err, &assocErr) {
			// Duplicate or retried connect: drop without mutating state.
			recordDiscard("duplicate_connect")
			d.log.Debugw("ignored duplicate connect", "conn_id", sender.ID(), "player_id", ev.PlayerID, "bound", assocErr.Bound)
			return
		}
		d.log.Warnw("associate failed", "conn_id", sender.ID(), "player_id", ev.PlayerID, "error", err)
		return
	}

	d.store.Upsert(ev.PlayerID, PlayerUpdate{
		Name:     &ev.PlayerName,
		Position: &ev.Position,
	})

	d.broadcast.SendTo(sender, encodeAllPlayers(d.store.SnapshotExcluding(ev.PlayerID)))
	d.broadcast.Fanout(encodeNewPlayer(ev), sender)

	d.log.Infow("player joined", "player_id", ev.PlayerID, "player_name", ev.PlayerName, "conn_id", sender.ID())
}

func (d *EventDispatcher) handleUpdatePosition(sender Conn, ev UpdatePositionEvent) {
	d.store.Upsert(ev.PlayerID, PlayerUpdate{
		Position:    &ev.Position,
		GunRotation: &ev.GunRotation,
		GunPosition: &ev.GunPosition,
	})
	d.broadcast.Fanout(encodeUpdatePosition(ev), sender)
}

func (d *EventDispatcher) handleUpdateEnemyPosition(sender Conn, ev UpdateEnemyPositionEvent) {
	// Orientation fields only; the push impulse is relayed, not stored.
	d.store.Upsert(ev.PlayerID, PlayerUpdate{
		GunRotation: &ev.GunRotation,
		GunPosition: &ev.GunPosition,
	})
	d.broadcast.Fanout(encodeUpdateEnemyPosition(ev), sender)
}

func (d *EventDispatcher) handleFire(sender Conn, ev FireEvent) {
	d.store.Upsert(ev.PlayerID, PlayerUpdate{LastFire: &ev.FireType})
	d.broadcast.Fanout(encodeFire(ev), sender)
}

func (d *EventDispatcher) handleDamage(sender Conn, ev DamageEvent) {
	// Damage is forwarded but never persisted to the record.
	d.broadcast.Fanout(encodeDamage(ev), sender)
}

// handleExternalMove merges the new position into the target's structured
// record. An unknown target still gets the broadcast (the relay forwards
// every accepted event) but creates no ghost record.
func (d *EventDispatcher) handleExternalMove(sender Conn, ev ExternalMoveEvent) {
	if !d.store.SetPosition(ev.TargetID, ev.Position) {
		d.log.Debugw("external_move for unknown target", "target_id", ev.TargetID)
	}
	d.broadcast.Fanout(encodeExternalMove(ev), sender)
}
