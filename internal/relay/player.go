package relay

// PlayerRecord is the last-known state of one active player. Records are
// created by connect, mutated in place by later events, and destroyed when
// the player leaves. LastDamage mirrors the documented record shape but is
// never written: damage events are relayed, not persisted.
type PlayerRecord struct {
	ID          string   `json:"player_id"`
	Name        string   `json:"player_name"`
	Position    Vec3     `json:"position"`
	GunRotation *Quat    `json:"gun_rotation,omitempty"`
	GunPosition *Vec3    `json:"gun_position,omitempty"`
	LastFire    string   `json:"last_fire_type,omitempty"`
	LastDamage  *float64 `json:"last_damage,omitempty"`
}

// PlayerUpdate is one field-wise merge into a record. Nil fields are left
// untouched; non-nil fields overwrite (last write wins per field).
type PlayerUpdate struct {
	Name        *string
	Position    *Vec3
	GunRotation *Quat
	GunPosition *Vec3
	LastFire    *string
}

// PlayerStateStore holds the latest known attributes of each active player.
//
// The store carries no lock of its own: all access is serialized by the
// relay mutex that also covers the broadcast half of each event step.
type PlayerStateStore struct {
	players map[string]*PlayerRecord
}

// NewPlayerStateStore creates an empty store
func NewPlayerStateStore() *PlayerStateStore {
	return &PlayerStateStore{players: make(map[string]*PlayerRecord)}
}

// Upsert creates the record if absent, else merges the non-nil fields of
// the update into the existing record.
func (s *PlayerStateStore) Upsert(playerID string, update PlayerUpdate) {
	rec, ok := s.players[playerID]
	if !ok {
		rec = &PlayerRecord{ID: playerID}
		s.players[playerID] = rec
	}
	if update.Name != nil {
		rec.Name = *update.Name
	}
	if update.Position != nil {
		rec.Position = *update.Position
	}
	if update.GunRotation != nil {
		q := *update.GunRotation
		rec.GunRotation = &q
	}
	if update.GunPosition != nil {
		v := *update.GunPosition
		rec.GunPosition = &v
	}
	if update.LastFire != nil {
		rec.LastFire = *update.LastFire
	}
}

// SetPosition overwrites the stored position of an existing record without
// touching any other field. Returns false if the player is unknown.
func (s *PlayerStateStore) SetPosition(playerID string, pos Vec3) bool {
	rec, ok := s.players[playerID]
	if !ok {
		return false
	}
	rec.Position = pos
	return true
}

// Remove deletes the record. Removing an absent id is a no-op.
func (s *PlayerStateStore) Remove(playerID string) {
	delete(s.players, playerID)
}

// Contains reports whether a record exists for the id
func (s *PlayerStateStore) Contains(playerID string) bool {
	_, ok := s.players[playerID]
	return ok
}

// Len returns the number of active records
func (s *PlayerStateStore) Len() int {
	return len(s.players)
}

// SnapshotExcluding returns copies of all current records except the given
// id, suitable for a one-time catch-up payload. Order is unspecified.
func (s *PlayerStateStore) SnapshotExcluding(playerID string) []PlayerRecord {
	out := make([]PlayerRecord, 0, len(s.players))
	for id, rec := range s.players {
		if id == playerID {
			continue
		}
		out = append(out, *rec)
	}
	return out
}
