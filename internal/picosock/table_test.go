package picosock

import "testing"

func TestTableAllocFreeRoundTrip(t *testing.T) {
	tbl := NewTable(2)
	r1 := tbl.Alloc(KindTCP)
	if r1 == nil {
		t.Fatal("alloc on an empty table should have succeeded")
	}
	r2 := tbl.Alloc(KindUDP)
	if r2 == nil {
		t.Fatal("second alloc should have succeeded")
	}
	if r1.slot == r2.slot {
		t.Fatalf("distinct allocations got the same slot %d", r1.slot)
	}
	if tbl.Alloc(KindTCP) != nil {
		t.Fatal("alloc beyond capacity should return nil")
	}
	tbl.Free(r1)
	r3 := tbl.Alloc(KindTCP)
	if r3 == nil {
		t.Fatal("alloc after free should have succeeded")
	}
	if r3.slot != r1.slot {
		t.Fatalf("freed slot %d was not reused, got slot %d", r1.slot, r3.slot)
	}
}

// TestTableReuseGivesFreshRecordIdentity exercises the slot-recycling
// decision described on Table: a slot's record is always a new object, so a
// stale pointer from a record that outlived its slot never aliases
// whatever claims that slot afterward.
func TestTableReuseGivesFreshRecordIdentity(t *testing.T) {
	tbl := NewTable(1)
	r1 := tbl.Alloc(KindTCP)
	tbl.Free(r1)
	r2 := tbl.Alloc(KindTCP)
	if r1 == r2 {
		t.Fatal("slot reuse returned the same *Record instance")
	}
	if r2.slot != r1.slot {
		t.Fatalf("expected the same slot number reused, got %d and %d", r1.slot, r2.slot)
	}
	// r1 is still a perfectly valid, independent object: mutating it must
	// not affect r2, unlike an in-place-reused struct would.
	r1.port = 999
	if r2.port == 999 {
		t.Fatal("mutating the stale record leaked into the reused slot's record")
	}
}

func TestTableFreeIgnoresStaleRecord(t *testing.T) {
	tbl := NewTable(1)
	r1 := tbl.Alloc(KindTCP)
	tbl.Free(r1)
	r2 := tbl.Alloc(KindTCP)
	// Freeing the already-displaced r1 again must not clobber r2's slot.
	tbl.Free(r1)
	if tbl.Records()[0] != r2 {
		t.Fatal("freeing a stale record evicted the slot's current occupant")
	}
}

func TestTableRecordsSnapshot(t *testing.T) {
	tbl := NewTable(4)
	a := tbl.Alloc(KindTCP)
	b := tbl.Alloc(KindUDP)
	recs := tbl.Records()
	if len(recs) != 2 {
		t.Fatalf("Records() returned %d entries, want 2", len(recs))
	}
	seen := map[*Record]bool{a: false, b: false}
	for _, r := range recs {
		if _, ok := seen[r]; ok {
			seen[r] = true
		}
	}
	for r, ok := range seen {
		if !ok {
			t.Fatalf("Records() missing allocated record in slot %d", r.slot)
		}
	}
}

func TestTableCapacity(t *testing.T) {
	tbl := NewTable(5)
	if tbl.Capacity() != 5 {
		t.Fatalf("Capacity() = %d, want 5", tbl.Capacity())
	}
}
