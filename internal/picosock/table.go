package picosock

import (
	"fmt"
	"sync"
)

// Table is the fixed-capacity socket pool, generalizing the original's
// UOS_BITTAB_TABLE bit-table allocator: a bounded set of slot indices, each
// either free or holding one live Record.
//
// Unlike the C allocator, which reuses the same struct storage for a slot
// across its lifetime, Table allocates a fresh *Record each time a slot is
// claimed. That gives every connection a distinct object identity: a stale
// reference held by a callback that outlived its socket (the appstate
// back-pointer from ipstack) stays distinguishable from whatever later
// claims the same slot number, with no generation counter needed to tell
// them apart — Go's garbage collector keeps the old object alive and
// identity-stable for as long as anything still points at it.
type Table struct {
	mu    sync.Mutex
	slots []*Record
	free  []bool
}

// NewTable builds a table with the given fixed capacity.
func NewTable(capacity int) *Table {
	return &Table{
		slots: make([]*Record, capacity),
		free:  makeAllFree(capacity),
	}
}

func makeAllFree(n int) []bool {
	f := make([]bool, n)
	for i := range f {
		f[i] = true
	}
	return f
}

// Alloc claims the lowest free slot and returns a new Record for it, or nil
// if the table is full (the original's equivalent of netSockAlloc running
// out of bits).
func (t *Table) Alloc(kind Kind) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, isFree := range t.free {
		if isFree {
			t.free[i] = false
			r := newRecord(i, kind)
			t.slots[i] = r
			return r
		}
	}
	return nil
}

// Free releases r's slot back to the pool.
func (t *Table) Free(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.slot < 0 || r.slot >= len(t.slots) {
		return
	}
	if t.slots[r.slot] == r {
		t.slots[r.slot] = nil
		t.free[r.slot] = true
	}
}

// Records returns a snapshot of every currently allocated record, used by
// the accept broker's table scan, the diagnostics handler and SocketFS.
func (t *Table) Records() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Record, 0, len(t.slots))
	for _, r := range t.slots {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Capacity reports the table's fixed size.
func (t *Table) Capacity() int { return len(t.slots) }

func (t *Table) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	used := 0
	for _, f := range t.free {
		if !f {
			used++
		}
	}
	return fmt.Sprintf("picosock.Table{used=%d/%d}", used, len(t.slots))
}
