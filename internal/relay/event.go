package relay

import (
	"encoding/json"
)

// EventKind enum for inbound event classification
type EventKind uint8

const (
	EventKindUnknown EventKind = iota
	EventKindConnect
	EventKindUpdatePosition
	EventKindUpdateEnemyPosition
	EventKindFire
	EventKindDamage
	EventKindExternalMove
	EventKindDisconnect
)

// String returns the wire name of the event kind
func (k EventKind) String() string {
	switch k {
	case EventKindConnect:
		return "connect"
	case EventKindUpdatePosition:
		return "update_position"
	case EventKindUpdateEnemyPosition:
		return "update_enemy_position"
	case EventKindFire:
		return "fire"
	case EventKindDamage:
		return "damage"
	case EventKindExternalMove:
		return "external_move"
	case EventKindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Vec3 is a position or direction in world space
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is an orientation quaternion as sent by the client
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Event is one decoded inbound message. Exactly one variant per kind;
// anything that does not decode into a known variant is discarded at the
// boundary instead of being probed downstream.
type Event interface {
	Kind() EventKind
}

// ConnectEvent announces a new player on the sending connection
type ConnectEvent struct {
	PlayerID   string
	PlayerName string
	Position   Vec3
}

// UpdatePositionEvent moves the sender and carries its weapon transform
type UpdatePositionEvent struct {
	PlayerID    string
	Position    Vec3
	GunRotation Quat
	GunPosition Vec3
}

// UpdateEnemyPositionEvent updates the sender's weapon transform plus a
// push impulse for remote rendering; it does not move the sender
type UpdateEnemyPositionEvent struct {
	PlayerID      string
	GunRotation   Quat
	GunPosition   Vec3
	PushDirection Vec3
	PushForce     float64
}

// FireEvent reports a weapon discharge
type FireEvent struct {
	PlayerID string
	FireType string
}

// DamageEvent reports damage dealt; relayed but never persisted
type DamageEvent struct {
	PlayerID string
	Damage   float64
}

// ExternalMoveEvent repositions another player's stored record
type ExternalMoveEvent struct {
	TargetID string
	Position Vec3
}

// DisconnectEvent is the graceful counterpart of an abrupt stream closure
type DisconnectEvent struct {
	PlayerID string
}

func (ConnectEvent) Kind() EventKind             { return EventKindConnect }
func (UpdatePositionEvent) Kind() EventKind      { return EventKindUpdatePosition }
func (UpdateEnemyPositionEvent) Kind() EventKind { return EventKindUpdateEnemyPosition }
func (FireEvent) Kind() EventKind                { return EventKindFire }
func (DamageEvent) Kind() EventKind              { return EventKindDamage }
func (ExternalMoveEvent) Kind() EventKind        { return EventKindExternalMove }
func (DisconnectEvent) Kind() EventKind          { return EventKindDisconnect }

// Wire shapes for strict decoding. Required fields are pointers so a missing
// field is distinguishable from a zero value.
type wireEnvelope struct {
	EventType string `json:"event_type"`
}

type wireConnect struct {
	PlayerID   *string `json:"player_id"`
	PlayerName *string `json:"player_name"`
	Position   *Vec3   `json:"position"`
}

type wireUpdatePosition struct {
	PlayerID    *string `json:"player_id"`
	Position    *Vec3   `json:"position"`
	GunRotation *Quat   `json:"gun_rotation"`
	GunPosition *Vec3   `json:"gun_position"`
}

type wireUpdateEnemyPosition struct {
	PlayerID      *string  `json:"player_id"`
	GunRotation   *Quat    `json:"gun_rotation"`
	GunPosition   *Vec3    `json:"gun_position"`
	PushDirection *Vec3    `json:"pushDirection"`
	PushForce     *float64 `json:"pushForce"`
}

type wireFire struct {
	PlayerID *string `json:"player_id"`
	FireType *string `json:"player_fireType"`
}

type wireDamage struct {
	PlayerID *string  `json:"player_id"`
	Damage   *float64 `json:"player_damage"`
}

type wireExternalMove struct {
	TargetID *string `json:"target_id"`
	Position *Vec3   `json:"position"`
}

type wireDisconnect struct {
	PlayerID *string `json:"player_id"`
}

// missingID reports an absent or empty id field. The empty string is the
// registry's unbound sentinel and the store would hold an unremovable
// record for it, so an empty id is schema-violating, not a zero value.
func missingID(id *string) bool {
	return id == nil || *id == ""
}

// DecodeEvent parses one inbound payload into a typed event.
//
// The bool result is false for anything unusable: invalid JSON, a missing
// required field, or an unrecognized event_type. Unknown kinds are reported
// via the kind result so the caller can count them separately (forward
// compatibility: new client builds may emit kinds this relay predates).
func DecodeEvent(payload []byte) (Event, EventKind, bool) {
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, EventKindUnknown, false
	}

	switch env.EventType {
	case "connect":
		var w wireConnect
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) || w.PlayerName == nil || w.Position == nil {
			return nil, EventKindConnect, false
		}
		return ConnectEvent{PlayerID: *w.PlayerID, PlayerName: *w.PlayerName, Position: *w.Position}, EventKindConnect, true

	case "update_position":
		var w wireUpdatePosition
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) || w.Position == nil || w.GunRotation == nil || w.GunPosition == nil {
			return nil, EventKindUpdatePosition, false
		}
		return UpdatePositionEvent{
			PlayerID:    *w.PlayerID,
			Position:    *w.Position,
			GunRotation: *w.GunRotation,
			GunPosition: *w.GunPosition,
		}, EventKindUpdatePosition, true

	case "update_enemy_position":
		var w wireUpdateEnemyPosition
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) || w.GunRotation == nil || w.GunPosition == nil || w.PushDirection == nil || w.PushForce == nil {
			return nil, EventKindUpdateEnemyPosition, false
		}
		return UpdateEnemyPositionEvent{
			PlayerID:      *w.PlayerID,
			GunRotation:   *w.GunRotation,
			GunPosition:   *w.GunPosition,
			PushDirection: *w.PushDirection,
			PushForce:     *w.PushForce,
		}, EventKindUpdateEnemyPosition, true

	case "fire":
		var w wireFire
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) || w.FireType == nil {
			return nil, EventKindFire, false
		}
		return FireEvent{PlayerID: *w.PlayerID, FireType: *w.FireType}, EventKindFire, true

	case "damage":
		var w wireDamage
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) || w.Damage == nil {
			return nil, EventKindDamage, false
		}
		return DamageEvent{PlayerID: *w.PlayerID, Damage: *w.Damage}, EventKindDamage, true

	case "external_move":
		var w wireExternalMove
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.TargetID) || w.Position == nil {
			return nil, EventKindExternalMove, false
		}
		return ExternalMoveEvent{TargetID: *w.TargetID, Position: *w.Position}, EventKindExternalMove, true

	case "disconnect":
		var w wireDisconnect
		if err := json.Unmarshal(payload, &w); err != nil || missingID(w.PlayerID) {
			return nil, EventKindDisconnect, false
		}
		return DisconnectEvent{PlayerID: *w.PlayerID}, EventKindDisconnect, true

	default:
		return nil, EventKindUnknown, false
	}
}

// Outbound messages. Every payload carries an event_type discriminator so
// clients can route without probing fields.

type newPlayerMessage struct {
	EventType  string `json:"event_type"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Position   Vec3   `json:"position"`
}

type allPlayersMessage struct {
	EventType string         `json:"event_type"`
	Players   []PlayerRecord `json:"players"`
}

type updatePositionMessage struct {
	EventType   string `json:"event_type"`
	PlayerID    string `json:"player_id"`
	Position    Vec3   `json:"position"`
	GunRotation Quat   `json:"gun_rotation"`
	GunPosition Vec3   `json:"gun_position"`
}

type updateEnemyPositionMessage struct {
	EventType     string  `json:"event_type"`
	PlayerID      string  `json:"player_id"`
	GunRotation   Quat    `json:"gun_rotation"`
	GunPosition   Vec3    `json:"gun_position"`
	PushDirection Vec3    `json:"pushDirection"`
	PushForce     float64 `json:"pushForce"`
}

type fireMessage struct {
	EventType string `json:"event_type"`
	PlayerID  string `json:"player_id"`
	FireType  string `json:"player_fireType"`
}

type damageMessage struct {
	EventType string  `json:"event_type"`
	PlayerID  string  `json:"player_id"`
	Damage    float64 `json:"damage"`
}

type externalMoveMessage struct {
	EventType string `json:"event_type"`
	TargetID  string `json:"target_id"`
	Position  Vec3   `json:"position"`
}

type playerLeftMessage struct {
	EventType string `json:"event_type"`
	PlayerID  string `json:"player_id"`
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All outbound shapes are plain structs; this cannot fail at runtime.
		panic(err)
	}
	return data
}

func encodeNewPlayer(ev ConnectEvent) []byte {
	return mustMarshal(newPlayerMessage{
		EventType:  "new_player",
		PlayerID:   ev.PlayerID,
		PlayerName: ev.PlayerName,
		Position:   ev.Position,
	})
}

func encodeAllPlayers(players []PlayerRecord) []byte {
	if players == nil {
		players = []PlayerRecord{}
	}
	return mustMarshal(allPlayersMessage{EventType: "all_players", Players: players})
}

func encodeUpdatePosition(ev UpdatePositionEvent) []byte {
	return mustMarshal(updatePositionMessage{
		EventType:   "update_position",
		PlayerID:    ev.PlayerID,
		Position:    ev.Position,
		GunRotation: ev.GunRotation,
		GunPosition: ev.GunPosition,
	})
}

func encodeUpdateEnemyPosition(ev UpdateEnemyPositionEvent) []byte {
	return mustMarshal(updateEnemyPositionMessage{
		EventType:     "update_enemy_position",
		PlayerID:      ev.PlayerID,
		GunRotation:   ev.GunRotation,
		GunPosition:   ev.GunPosition,
		PushDirection: ev.PushDirection,
		PushForce:     ev.PushForce,
	})
}

func encodeFire(ev FireEvent) []byte {
	return mustMarshal(fireMessage{EventType: "fire", PlayerID: ev.PlayerID, FireType: ev.FireType})
}

func encodeDamage(ev DamageEvent) []byte {
	return mustMarshal(damageMessage{EventType: "damage", PlayerID: ev.PlayerID, Damage: ev.Damage})
}

func encodeExternalMove(ev ExternalMoveEvent) []byte {
	return mustMarshal(externalMoveMessage{EventType: "external_move", TargetID: ev.TargetID, Position: ev.Position})
}

func encodePlayerLeft(playerID string) []byte {
	return mustMarshal(playerLeftMessage{EventType: "player_left", PlayerID: playerID})
}
