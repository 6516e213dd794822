package relay

import "testing"

// TestUpsertCreatesRecord tests record creation on first upsert
func TestUpsertCreatesRecord(t *testing.T) {
	s := NewPlayerStateStore()

	name := "alice"
	pos := Vec3{X: 1, Y: 2, Z: 3}
	s.Upsert("a", PlayerUpdate{Name: &name, Position: &pos})

	if !s.Contains("a") {
		t.Fatal("record not created")
	}
	snap := s.SnapshotExcluding("")
	if len(snap) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snap))
	}
	if snap[0].Name != "alice" || snap[0].Position != pos {
		t.Errorf("unexpected record: %+v", snap[0])
	}
}

// TestUpsertLastWriteWins tests per-field last-write-wins merging
func TestUpsertLastWriteWins(t *testing.T) {
	s := NewPlayerStateStore()

	name := "alice"
	p1 := Vec3{X: 1}
	p2 := Vec3{X: 5}
	rot := Quat{W: 1}

	s.Upsert("a", PlayerUpdate{Name: &name, Position: &p1})
	s.Upsert("a", PlayerUpdate{Position: &p2, GunRotation: &rot})

	snap := s.SnapshotExcluding("")
	if snap[0].Position != p2 {
		t.Errorf("expected position %+v, got %+v", p2, snap[0].Position)
	}
	if snap[0].Name != "alice" {
		t.Errorf("nil field should not clear name, got %q", snap[0].Name)
	}
	if snap[0].GunRotation == nil || *snap[0].GunRotation != rot {
		t.Errorf("gun rotation not merged: %+v", snap[0].GunRotation)
	}
}

// TestRemoveIdempotent tests that removing an absent id is a no-op
func TestRemoveIdempotent(t *testing.T) {
	s := NewPlayerStateStore()

	name := "bob"
	s.Upsert("b", PlayerUpdate{Name: &name})
	s.Remove("b")
	s.Remove("b") // second remove must not panic or error
	s.Remove("never-existed")

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d records", s.Len())
	}
}

// TestSnapshotExcluding tests catch-up snapshot scoping
func TestSnapshotExcluding(t *testing.T) {
	s := NewPlayerStateStore()
	for _, id := range []string{"a", "b", "c"} {
		name := id
		s.Upsert(id, PlayerUpdate{Name: &name})
	}

	snap := s.SnapshotExcluding("b")
	if len(snap) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap))
	}
	for _, rec := range snap {
		if rec.ID == "b" {
			t.Error("excluded id present in snapshot")
		}
	}
}

// TestSnapshotIsCopy tests that mutating a snapshot does not leak into the store
func TestSnapshotIsCopy(t *testing.T) {
	s := NewPlayerStateStore()
	name := "alice"
	s.Upsert("a", PlayerUpdate{Name: &name})

	snap := s.SnapshotExcluding("")
	snap[0].Name = "mutated"

	if got := s.SnapshotExcluding("")[0].Name; got != "alice" {
		t.Errorf("store mutated through snapshot: %q", got)
	}
}

// TestSetPosition tests the external-move position overwrite
func TestSetPosition(t *testing.T) {
	s := NewPlayerStateStore()
	name := "alice"
	rot := Quat{W: 1}
	s.Upsert("a", PlayerUpdate{Name: &name, GunRotation: &rot})

	if !s.SetPosition("a", Vec3{X: 9}) {
		t.Fatal("SetPosition failed for existing record")
	}
	rec := s.SnapshotExcluding("")[0]
	if rec.Position.X != 9 {
		t.Errorf("position not overwritten: %+v", rec.Position)
	}
	if rec.Name != "alice" || rec.GunRotation == nil {
		t.Error("SetPosition must not touch other fields")
	}

	if s.SetPosition("ghost", Vec3{}) {
		t.Error("SetPosition must not create records")
	}
	if s.Contains("ghost") {
		t.Error("ghost record created")
	}
}
