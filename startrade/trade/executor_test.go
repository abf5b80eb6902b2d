package trade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyeseon-dev/startrade/startrade/pool"
)

// faultyResolver fails Materialize after a set number of successes, to probe
// settlement behavior on partial failure.
type faultyResolver struct {
	pool.Resolver
	successes int
}

func (r *faultyResolver) Materialize(ctx context.Context, playerName string, p *pool.Pool) (string, error) {
	if r.successes <= 0 {
		return "", errors.New("snapshot store unavailable")
	}
	r.successes--
	return r.Resolver.Materialize(ctx, playerName, p)
}

func testOffer() *Offer {
	return &Offer{
		TradeID: "42",
		RowNum:  1,
		Participants: [2]Participant{
			{UserID: aliceID, Name: "Alice", Card: "Card X", Response: ResponseAccept},
			{UserID: bobID, Name: "Bob", Card: "Card Y", Response: ResponseAccept},
		},
	}
}

func TestSettleAppendsFourRowsAtOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.changeRowCount(t)

	executor := NewExecutor(f.gw, f.resolver, testSheets.Changes)
	err := executor.Settle(ctx, testOffer(), [2]Currency{CurrencySilver, CurrencyGold})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	rows, err := f.gw.ReadRows(ctx, testSheets.Changes)
	if err != nil {
		t.Fatalf("failed to read change ledger: %v", err)
	}
	settlement := rows[before:]
	if len(settlement) != 4 {
		t.Fatalf("settlement appended %d rows, want 4", len(settlement))
	}

	// Remove rows carry no pool id; add rows reference the new pool.
	wantTypes := []string{pool.ChangeRemove, pool.ChangeAdd, pool.ChangeRemove, pool.ChangeAdd}
	for i, row := range settlement {
		if got := row.Cell(pool.ColChange - 1); got != wantTypes[i] {
			t.Errorf("row %d change type = %q, want %q", i, got, wantTypes[i])
		}
		poolID := row.Cell(pool.ColPoolID - 1)
		if wantTypes[i] == pool.ChangeRemove && poolID != "" {
			t.Errorf("remove row %d carries pool id %q", i, poolID)
		}
		if wantTypes[i] == pool.ChangeAdd && poolID == "" {
			t.Errorf("add row %d carries no pool id", i)
		}
		if comment := row.Cell(pool.ColComment - 1); !strings.Contains(comment, "trade 42") {
			t.Errorf("row %d comment %q does not name the trade", i, comment)
		}
	}

	if !strings.Contains(settlement[0].Cell(pool.ColComment-1), "silver star") {
		t.Errorf("Alice's comment %q does not name her currency", settlement[0].Cell(pool.ColComment-1))
	}
	if !strings.Contains(settlement[2].Cell(pool.ColComment-1), "gold star") {
		t.Errorf("Bob's comment %q does not name his currency", settlement[2].Cell(pool.ColComment-1))
	}
}

func TestSettleFailureLeavesLedgerUntouched(t *testing.T) {
	tests := []struct {
		name      string
		successes int
	}{
		{"first materialization fails", 0},
		{"second materialization fails", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			before := f.changeRowCount(t)

			executor := NewExecutor(f.gw, &faultyResolver{Resolver: f.resolver, successes: tt.successes}, testSheets.Changes)
			err := executor.Settle(ctx, testOffer(), [2]Currency{CurrencyGold, CurrencyGold})
			if err == nil {
				t.Fatal("expected Settle to fail")
			}

			if got := f.changeRowCount(t); got != before {
				t.Errorf("failed settlement still appended %d change rows", got-before)
			}
		})
	}
}

func TestSettleFailsWhenGiverLostTheCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.changeRowCount(t)

	offer := testOffer()
	offer.Participants[0].Card = "Card Z" // never in Alice's pool

	executor := NewExecutor(f.gw, f.resolver, testSheets.Changes)
	if err := executor.Settle(ctx, offer, [2]Currency{CurrencyGold, CurrencyGold}); err == nil {
		t.Fatal("expected Settle to fail for a card the giver does not hold")
	}
	if got := f.changeRowCount(t); got != before {
		t.Errorf("failed settlement still appended %d change rows", got-before)
	}
}
