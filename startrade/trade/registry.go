package trade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
)

// Registry owns every in-flight offer. It is a derived cache: the request
// sheet is the durable record, and Recover can rebuild the whole map from it
// at any time.
type Registry struct {
	mu     sync.RWMutex
	offers map[string]*Offer
	byRow  map[int]string
}

func NewRegistry() *Registry {
	return &Registry{
		offers: make(map[string]*Offer),
		byRow:  make(map[int]string),
	}
}

func (r *Registry) Register(o *Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.offers[o.TradeID]; exists {
		return fmt.Errorf("trade %s is already registered", o.TradeID)
	}
	if other, exists := r.byRow[o.RowNum]; exists {
		return fmt.Errorf("row %d already has live trade %s", o.RowNum, other)
	}

	r.offers[o.TradeID] = o
	r.byRow[o.RowNum] = o.TradeID
	return nil
}

func (r *Registry) Get(tradeID string) *Offer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offers[tradeID]
}

func (r *Registry) Remove(tradeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, exists := r.offers[tradeID]; exists {
		delete(r.byRow, o.RowNum)
		delete(r.offers, tradeID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.offers)
}

// Live returns the in-flight offers ordered by trade id. Snowflake ids are
// time-ordered, so this is creation order.
func (r *Registry) Live() []*Offer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Offer, 0, len(r.offers))
	for _, o := range r.offers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.ParseUint(out[i].TradeID, 10, 64)
		b, errB := strconv.ParseUint(out[j].TradeID, 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out
}

func (r *Registry) replaceAll(offers map[string]*Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.offers = offers
	r.byRow = make(map[int]string, len(offers))
	for id, o := range offers {
		r.byRow[o.RowNum] = id
	}
}

// Recover rebuilds the registry from a full scan of the request sheet. Rows
// already resolved are skipped; rows the scanner has not initiated yet are
// left for the scanner; anything in between is reconstructed or reported as a
// data-integrity failure and left untouched for manual repair. The rebuild
// swaps in atomically, so running it twice without intervening writes yields
// the same registry.
func (e *Engine) Recover(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.gateway.ReadRows(ctx, e.sheets.Requests)
	if err != nil {
		return fmt.Errorf("failed to scan request sheet: %w", err)
	}

	recovered := make(map[string]*Offer)
	var failures int

	for i, row := range rows {
		rr := parseRequestRow(i+1, row)
		if !rr.hasCards() || rr.resolved() {
			continue
		}
		if rr.initiation == "" && rr.responseA == "" && rr.responseB == "" {
			// Not initiated yet; the scanner owns this row.
			continue
		}

		offer, err := e.recoverRow(ctx, rr)
		if err != nil {
			failures++
			e.reportIntegrityFailure(ctx, fmt.Sprintf("row %d of %s", rr.rowNum, e.sheets.Requests), err)
			continue
		}

		recovered[offer.TradeID] = offer
	}

	e.registry.replaceAll(recovered)

	slog.Info("Trade registry recovered",
		slog.String("type", "trade"),
		slog.Int("live_trades", len(recovered)),
		slog.Int("rows_scanned", len(rows)),
		slog.Int("integrity_failures", failures))
	return nil
}

func (e *Engine) recoverRow(ctx context.Context, rr requestRow) (*Offer, error) {
	if rr.initiation == "" {
		return nil, fmt.Errorf("row has responses but no initiation state")
	}

	tradeID, refs, err := decodeInitiation(rr.initiation)
	if err != nil {
		return nil, err
	}

	playerA, err := e.directory.ByName(ctx, rr.nameA)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve participant %q: %w", rr.nameA, err)
	}
	playerB, err := e.directory.ByName(ctx, rr.nameB)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve participant %q: %w", rr.nameB, err)
	}

	return &Offer{
		TradeID: tradeID,
		RowNum:  rr.rowNum,
		Participants: [2]Participant{
			{
				UserID:          playerA.ID,
				Name:            playerA.Name,
				Card:            rr.cardA,
				Response:        parseResponse(rr.responseA),
				NotificationRef: refs[0],
			},
			{
				UserID:          playerB.ID,
				Name:            playerB.Name,
				Card:            rr.cardB,
				Response:        parseResponse(rr.responseB),
				NotificationRef: refs[1],
			},
		},
	}, nil
}
