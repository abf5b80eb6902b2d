package trade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/pool"
)

// Executor commits a fully accepted trade: two new pools, four pool change
// rows, one append.
type Executor struct {
	gateway      ledger.Gateway
	resolver     pool.Resolver
	changesSheet string
}

func NewExecutor(gateway ledger.Gateway, resolver pool.Resolver, changesSheet string) *Executor {
	return &Executor{gateway: gateway, resolver: resolver, changesSheet: changesSheet}
}

// Settle swaps the two offered cards. Both resulting pools are computed and
// materialized before the first pool change row is written, and all four rows
// go out in a single batched append, so a concurrent reader of the change
// ledger never sees one side of the trade without the other. Any failure
// before the append leaves the ledger without a single settlement row.
func (x *Executor) Settle(ctx context.Context, offer *Offer, currencies [2]Currency) error {
	a := &offer.Participants[0]
	b := &offer.Participants[1]

	newPoolA, err := x.swappedPool(ctx, a, b.Card)
	if err != nil {
		return err
	}
	newPoolB, err := x.swappedPool(ctx, b, a.Card)
	if err != nil {
		return err
	}

	poolIDA, err := x.resolver.Materialize(ctx, a.Name, newPoolA)
	if err != nil {
		return fmt.Errorf("failed to materialize pool for %s: %w", a.Name, err)
	}
	poolIDB, err := x.resolver.Materialize(ctx, b.Name, newPoolB)
	if err != nil {
		return fmt.Errorf("failed to materialize pool for %s: %w", b.Name, err)
	}

	commentA := settlementComment(offer.TradeID, b.Name, currencies[0])
	commentB := settlementComment(offer.TradeID, a.Name, currencies[1])

	rows := []ledger.Row{
		pool.ChangeRow(a.Name, pool.ChangeRemove, a.Card, commentA, ""),
		pool.ChangeRow(a.Name, pool.ChangeAdd, b.Card, commentA, poolIDA),
		pool.ChangeRow(b.Name, pool.ChangeRemove, b.Card, commentB, ""),
		pool.ChangeRow(b.Name, pool.ChangeAdd, a.Card, commentB, poolIDB),
	}

	if err := x.gateway.AppendRows(ctx, x.changesSheet, rows); err != nil {
		return fmt.Errorf("failed to append settlement rows: %w", err)
	}

	slog.Info("Trade settled",
		slog.String("type", "trade"),
		slog.String("trade_id", offer.TradeID),
		slog.String("pool_a", poolIDA),
		slog.String("pool_b", poolIDB))
	return nil
}

// swappedPool builds the giver's post-trade pool: minus one copy of their own
// card, plus one copy of the received card.
func (x *Executor) swappedPool(ctx context.Context, giver *Participant, received string) (*pool.Pool, error) {
	current, err := x.resolver.CurrentPool(ctx, giver.Name)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve current pool for %s: %w", giver.Name, err)
	}

	next := current.Clone()
	if err := next.Remove(giver.Card); err != nil {
		return nil, fmt.Errorf("%s's pool changed since validation: %w", giver.Name, err)
	}
	next.Add(received)
	return next, nil
}

func settlementComment(tradeID, counterpart string, currency Currency) string {
	return fmt.Sprintf("trade %s with %s (%s star)", tradeID, counterpart, currency)
}
