package trade

import "testing"

func TestRegistryRejectsConflicts(t *testing.T) {
	r := NewRegistry()

	first := &Offer{TradeID: "1", RowNum: 5}
	if err := r.Register(first); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if err := r.Register(&Offer{TradeID: "1", RowNum: 6}); err == nil {
		t.Error("duplicate trade id was accepted")
	}
	if err := r.Register(&Offer{TradeID: "2", RowNum: 5}); err == nil {
		t.Error("second live trade on the same row was accepted")
	}

	r.Remove("1")
	if err := r.Register(&Offer{TradeID: "2", RowNum: 5}); err != nil {
		t.Errorf("row stayed claimed after removal: %v", err)
	}
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Remove("missing")
	if r.Len() != 0 {
		t.Error("removing a missing trade changed the registry")
	}
}

func TestRegistryLiveIsOrdered(t *testing.T) {
	r := NewRegistry()
	for i, id := range []string{"3", "1", "2"} {
		if err := r.Register(&Offer{TradeID: id, RowNum: i + 1}); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	live := r.Live()
	if len(live) != 3 {
		t.Fatalf("Live() returned %d offers, want 3", len(live))
	}
	for i, want := range []string{"1", "2", "3"} {
		if live[i].TradeID != want {
			t.Errorf("Live()[%d] = %s, want %s", i, live[i].TradeID, want)
		}
	}
}

func TestRegistryLiveOrdersNumerically(t *testing.T) {
	r := NewRegistry()
	// Ids of different digit counts; lexicographic order would put "10" first.
	for i, id := range []string{"10", "9", "100"} {
		if err := r.Register(&Offer{TradeID: id, RowNum: i + 1}); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	live := r.Live()
	for i, want := range []string{"9", "10", "100"} {
		if live[i].TradeID != want {
			t.Errorf("Live()[%d] = %s, want %s", i, live[i].TradeID, want)
		}
	}
}
