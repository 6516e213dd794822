package relay

import "fmt"

// Conn is the relay's view of one bidirectional client stream. The transport
// layer owns the socket; the registry holds a non-owning reference keyed by
// the connection's identity.
//
// Send must not block: implementations enqueue and report failure (closed
// peer, full queue) as an error so the broadcast engine can prune.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// ConnState is the explicit connection lifecycle, updated by transport
// callbacks and by send-failure detection.
type ConnState uint8

const (
	ConnOpen ConnState = iota
	ConnClosing
	ConnClosed
)

// String returns a readable state name
func (s ConnState) String() string {
	switch s {
	case ConnOpen:
		return "open"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// AlreadyAssociatedError reports a connect that would violate the
// one-player-per-connection / one-connection-per-player pairing.
type AlreadyAssociatedError struct {
	ConnID    string
	Bound     string // player id currently holding the binding
	Attempted string
}

func (e *AlreadyAssociatedError) Error() string {
	return fmt.Sprintf("connection %s: cannot associate player %q, already bound to %q", e.ConnID, e.Attempted, e.Bound)
}

type registryEntry struct {
	conn     Conn
	state    ConnState
	playerID string // empty until a successful connect event
}

// ConnectionRegistry is the bidirectional association between live
// connections and the player identities they represent.
//
// Like PlayerStateStore it is unsynchronized by itself; the relay mutex
// serializes all access.
type ConnectionRegistry struct {
	entries  map[string]*registryEntry // conn id -> entry
	byPlayer map[string]string         // player id -> conn id
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		entries:  make(map[string]*registryEntry),
		byPlayer: make(map[string]string),
	}
}

// Add registers a freshly accepted connection in the pre-connect state.
// Adding an already-known connection is a no-op.
func (r *ConnectionRegistry) Add(conn Conn) {
	if _, ok := r.entries[conn.ID()]; ok {
		return
	}
	r.entries[conn.ID()] = &registryEntry{conn: conn, state: ConnOpen}
}

// Associate binds a connection to a player id. It fails with
// *AlreadyAssociatedError when the connection already carries a binding
// (duplicate or re-sent connect) or when the player id is held by another
// live connection (an id cannot be stolen without a disconnect first).
func (r *ConnectionRegistry) Associate(conn Conn, playerID string) error {
	entry, ok := r.entries[conn.ID()]
	if !ok {
		entry = &registryEntry{conn: conn, state: ConnOpen}
		r.entries[conn.ID()] = entry
	}
	if entry.playerID != "" {
		return &AlreadyAssociatedError{ConnID: conn.ID(), Bound: entry.playerID, Attempted: playerID}
	}
	if holder, taken := r.byPlayer[playerID]; taken && holder != conn.ID() {
		return &AlreadyAssociatedError{ConnID: conn.ID(), Bound: playerID, Attempted: playerID}
	}
	entry.playerID = playerID
	r.byPlayer[playerID] = conn.ID()
	return nil
}

// Unassociate removes and returns the player id bound to the connection.
// The second result is false when the connection carries no binding, which
// makes repeated teardown attempts harmless: only the first caller observes
// the id.
func (r *ConnectionRegistry) Unassociate(conn Conn) (string, bool) {
	entry, ok := r.entries[conn.ID()]
	if !ok || entry.playerID == "" {
		return "", false
	}
	playerID := entry.playerID
	entry.playerID = ""
	delete(r.byPlayer, playerID)
	return playerID, true
}

// Remove drops the connection entirely once the transport has released it
func (r *ConnectionRegistry) Remove(conn Conn) {
	entry, ok := r.entries[conn.ID()]
	if !ok {
		return
	}
	if entry.playerID != "" {
		delete(r.byPlayer, entry.playerID)
	}
	entry.state = ConnClosed
	delete(r.entries, conn.ID())
}

// MarkDead flags a connection as unusable without waiting for the transport
// to confirm closure. Dead connections no longer appear in LiveConnections.
func (r *ConnectionRegistry) MarkDead(conn Conn) {
	if entry, ok := r.entries[conn.ID()]; ok && entry.state == ConnOpen {
		entry.state = ConnClosing
	}
}

// State returns the lifecycle state of a connection. Unknown connections
// report ConnClosed.
func (r *ConnectionRegistry) State(conn Conn) ConnState {
	if entry, ok := r.entries[conn.ID()]; ok {
		return entry.state
	}
	return ConnClosed
}

// PlayerID returns the id bound to the connection, if any
func (r *ConnectionRegistry) PlayerID(conn Conn) (string, bool) {
	if entry, ok := r.entries[conn.ID()]; ok && entry.playerID != "" {
		return entry.playerID, true
	}
	return "", false
}

// LiveConnections returns all open connections, optionally excluding one.
// Pass nil to exclude nothing.
func (r *ConnectionRegistry) LiveConnections(excluding Conn) []Conn {
	out := make([]Conn, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.state != ConnOpen {
			continue
		}
		if excluding != nil && entry.conn.ID() == excluding.ID() {
			continue
		}
		out = append(out, entry.conn)
	}
	return out
}

// Len returns the number of registered connections in any state
func (r *ConnectionRegistry) Len() int {
	return len(r.entries)
}
