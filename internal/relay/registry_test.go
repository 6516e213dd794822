package relay

import (
	"errors"
	"testing"
)

func TestAssociateAndLookup(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeConn("c1")
	r.Add(c)

	if err := r.Associate(c, "alice"); err != nil {
		t.Fatalf("associate failed: %v", err)
	}
	id, ok := r.PlayerID(c)
	if !ok || id != "alice" {
		t.Errorf("expected binding to alice, got %q (%v)", id, ok)
	}
}

// TestAssociateRejectsRebinding guards one-player-per-connection
func TestAssociateRejectsRebinding(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeConn("c1")
	r.Add(c)

	if err := r.Associate(c, "alice"); err != nil {
		t.Fatalf("first associate failed: %v", err)
	}

	err := r.Associate(c, "bob")
	var assocErr *AlreadyAssociatedError
	if !errors.As(err, &assocErr) {
		t.Fatalf("expected AlreadyAssociatedError, got %v", err)
	}
	if assocErr.Bound != "alice" || assocErr.Attempted != "bob" {
		t.Errorf("unexpected error detail: %+v", assocErr)
	}

	// The original binding survives
	if id, _ := r.PlayerID(c); id != "alice" {
		t.Errorf("binding changed to %q", id)
	}
}

// TestAssociateRejectsTakenPlayerID guards one-connection-per-player
func TestAssociateRejectsTakenPlayerID(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	r.Add(c1)
	r.Add(c2)

	if err := r.Associate(c1, "alice"); err != nil {
		t.Fatalf("associate failed: %v", err)
	}
	var assocErr *AlreadyAssociatedError
	if err := r.Associate(c2, "alice"); !errors.As(err, &assocErr) {
		t.Fatalf("expected AlreadyAssociatedError for taken id, got %v", err)
	}
}

// TestUnassociateYieldsIDOnce is the exactly-once teardown guarantee
func TestUnassociateYieldsIDOnce(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeConn("c1")
	r.Add(c)
	r.Associate(c, "alice")

	id, ok := r.Unassociate(c)
	if !ok || id != "alice" {
		t.Fatalf("first unassociate: got %q (%v)", id, ok)
	}
	if _, ok := r.Unassociate(c); ok {
		t.Error("second unassociate must not yield the id again")
	}

	// The id is free for a new connection now
	c2 := newFakeConn("c2")
	r.Add(c2)
	if err := r.Associate(c2, "alice"); err != nil {
		t.Errorf("id not released after unassociate: %v", err)
	}
}

func TestMarkDeadExcludesFromLive(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	r.Add(c1)
	r.Add(c2)

	if got := len(r.LiveConnections(nil)); got != 2 {
		t.Fatalf("expected 2 live connections, got %d", got)
	}

	r.MarkDead(c1)
	if r.State(c1) != ConnClosing {
		t.Errorf("expected closing state, got %v", r.State(c1))
	}

	live := r.LiveConnections(nil)
	if len(live) != 1 || live[0].ID() != "c2" {
		t.Errorf("dead connection still live: %v", live)
	}
}

func TestLiveConnectionsExcluding(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	r.Add(c1)
	r.Add(c2)

	live := r.LiveConnections(c1)
	if len(live) != 1 || live[0].ID() != "c2" {
		t.Errorf("exclusion not applied: %v", live)
	}
}

func TestRemoveDropsEntry(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeConn("c1")
	r.Add(c)
	r.Associate(c, "alice")
	r.Remove(c)

	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
	if r.State(c) != ConnClosed {
		t.Errorf("removed connection should report closed, got %v", r.State(c))
	}

	// Removal also releases the player id binding
	c2 := newFakeConn("c2")
	r.Add(c2)
	if err := r.Associate(c2, "alice"); err != nil {
		t.Errorf("id not released by Remove: %v", err)
	}
}
