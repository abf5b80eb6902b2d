package pool

import (
	"context"
	"testing"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

const (
	testPoolsSheet   = "Pools"
	testChangesSheet = "Pool Change"
)

func newTestResolver() (*SheetResolver, *ledger.MemoryGateway) {
	gw := ledger.NewMemoryGateway()
	return NewSheetResolver(gw, testPoolsSheet, testChangesSheet), gw
}

func TestCurrentPoolFollowsLatestSnapshot(t *testing.T) {
	r, gw := newTestResolver()
	ctx := context.Background()

	old := New(Entry{Name: "Opt", Count: 1})
	current := New(Entry{Name: "Counterspell", Count: 1})
	gw.Seed(testPoolsSheet, []ledger.Row{
		{old.ID(), "Alice", old.Serialize()},
		{current.ID(), "Alice", current.Serialize()},
	})
	gw.Seed(testChangesSheet, []ledger.Row{
		ChangeRow("Alice", ChangeAdd, "Opt", "seed", old.ID()),
		ChangeRow("Alice", ChangeRemove, "Opt", "swap", ""),
		ChangeRow("Alice", ChangeAdd, "Counterspell", "swap", current.ID()),
	})

	got, err := r.CurrentPool(ctx, "Alice")
	if err != nil {
		t.Fatalf("CurrentPool failed: %v", err)
	}
	if got.ID() != current.ID() {
		t.Errorf("resolved pool %s, want the bottom-most referenced %s", got.ID(), current.ID())
	}
}

func TestCurrentPoolUnknownPlayer(t *testing.T) {
	r, _ := newTestResolver()

	if _, err := r.CurrentPool(context.Background(), "Nobody"); err == nil {
		t.Error("expected an error for a player with no recorded pool")
	}
}

func TestMaterializeThenFetch(t *testing.T) {
	r, gw := newTestResolver()
	ctx := context.Background()

	p := New(Entry{Name: "Brainstorm", Count: 3})
	id, err := r.Materialize(ctx, "Bob", p)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if id != p.ID() {
		t.Errorf("Materialize returned %s, want content address %s", id, p.ID())
	}

	rows, _ := gw.ReadRows(ctx, testPoolsSheet)
	if len(rows) != 1 {
		t.Fatalf("snapshot sheet has %d rows, want 1", len(rows))
	}

	// The snapshot is invisible until a change row references it.
	if _, err := r.CurrentPool(ctx, "Bob"); err == nil {
		t.Error("expected unreferenced snapshot to stay invisible")
	}

	gw.Seed(testChangesSheet, []ledger.Row{
		ChangeRow("Bob", ChangeAdd, "Brainstorm", "seed", id),
	})
	got, err := r.CurrentPool(ctx, "Bob")
	if err != nil {
		t.Fatalf("CurrentPool after reference failed: %v", err)
	}
	if got.Size() != 3 {
		t.Errorf("resolved pool has %d cards, want 3", got.Size())
	}
}

func TestFetchReturnsClones(t *testing.T) {
	r, gw := newTestResolver()
	ctx := context.Background()

	p := New(Entry{Name: "Opt", Count: 1})
	id, err := r.Materialize(ctx, "Alice", p)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	gw.Seed(testChangesSheet, []ledger.Row{
		ChangeRow("Alice", ChangeAdd, "Opt", "seed", id),
	})

	first, err := r.CurrentPool(ctx, "Alice")
	if err != nil {
		t.Fatalf("CurrentPool failed: %v", err)
	}
	first.Add("Counterspell")

	second, err := r.CurrentPool(ctx, "Alice")
	if err != nil {
		t.Fatalf("CurrentPool failed: %v", err)
	}
	if second.Contains("Counterspell") {
		t.Error("mutating a resolved pool leaked into the cache")
	}
}
