package trade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/hyeseon-dev/startrade/startrade/logger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
)

// Run polls the request sheet until the context is cancelled. A failed
// iteration is logged and the loop carries on: the next tick or the next human
// action supersedes it.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	slog.Info("Trade request scanner started",
		slog.String("type", "trade"),
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.ScanRequests(ctx)
	for {
		select {
		case <-ticker.C:
			e.ScanRequests(ctx)
		case <-ctx.Done():
			slog.Info("Trade request scanner stopped", slog.String("type", "trade"))
			return
		}
	}
}

// RequestScan asks for a scan as soon as possible. Callers arriving while a
// scan is in flight do not start a second one; they flip the rerun flag and
// the running scan loops once more before finishing.
func (e *Engine) RequestScan(ctx context.Context) {
	go e.ScanRequests(ctx)
}

// ScanRequests runs one scan pass, or marks a rerun if a pass is already in
// flight.
func (e *Engine) ScanRequests(ctx context.Context) {
	e.sfMu.Lock()
	if e.scanning {
		e.rerun = true
		e.sfMu.Unlock()
		return
	}
	e.scanning = true
	e.sfMu.Unlock()

	for {
		if err := e.scanOnce(ctx); err != nil {
			logScanError(err)
		}

		e.sfMu.Lock()
		if e.rerun {
			e.rerun = false
			e.sfMu.Unlock()
			continue
		}
		e.scanning = false
		e.sfMu.Unlock()
		return
	}
}

func logScanError(err error) {
	slog.Error("Request scan iteration failed",
		slog.String("type", "trade"),
		slog.Any("error", err))
}

func (e *Engine) scanOnce(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.gateway.ReadRows(ctx, e.sheets.Requests)
	if err != nil {
		return fmt.Errorf("failed to read request sheet: %w", err)
	}

	for i, row := range rows {
		rr := parseRequestRow(i+1, row)
		if !rr.unprocessed() {
			continue
		}
		e.processRequestRow(ctx, rr)
	}
	return nil
}

// processRequestRow turns one unprocessed row into a live offer, or records
// why it cannot be one. Once anything lands in the initiation or outcome cell
// the row is never picked up again, which keeps the scan idempotent across
// restarts.
func (e *Engine) processRequestRow(ctx context.Context, rr requestRow) {
	playerA, err := e.directory.ByName(ctx, rr.nameA)
	if err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}
	playerB, err := e.directory.ByName(ctx, rr.nameB)
	if err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}

	reasons, err := e.validator.Validate(ctx, playerA, playerB, rr.cardA, rr.cardB)
	if err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}
	if len(reasons) > 0 {
		e.rejectRequestRow(ctx, rr, playerA.ID, reasons)
		return
	}

	offer := &Offer{
		TradeID: e.newTradeID(),
		RowNum:  rr.rowNum,
		Participants: [2]Participant{
			{UserID: playerA.ID, Name: playerA.Name, Card: rr.cardA, Response: ResponsePending},
			{UserID: playerB.ID, Name: playerB.Name, Card: rr.cardB, Response: ResponsePending},
		},
	}

	if err := e.registry.Register(offer); err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}

	for slot := range offer.Participants {
		ref, err := e.notifier.Notify(ctx, offer.Participants[slot].UserID, offerPayload(offer, slot))
		if err != nil {
			e.registry.Remove(offer.TradeID)
			e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum),
				fmt.Errorf("failed to notify %s: %w", offer.Participants[slot].Name, err))
			return
		}
		offer.Participants[slot].NotificationRef = ref
	}

	blob, err := encodeInitiation(offer)
	if err != nil {
		e.registry.Remove(offer.TradeID)
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}
	ref := e.requestCell(rr.rowNum, reqColInitiation)
	if err := e.gateway.WriteCell(ctx, ref, blob); err != nil {
		e.registry.Remove(offer.TradeID)
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}

	logger.LogTrade("Trade offer created", offer.TradeID,
		slog.String("participant_a", playerA.Name),
		slog.String("participant_b", playerB.Name),
		slog.Int("row", rr.rowNum))
}

// rejectRequestRow records a validation failure in the outcome cell so the row
// is not reattempted, and tells the proposer why.
func (e *Engine) rejectRequestRow(ctx context.Context, rr requestRow, proposerID string, reasons []Reason) {
	outcome := "invalid: " + FormatReasons(reasons)
	if err := e.gateway.WriteCell(ctx, e.requestCell(rr.rowNum, reqColOutcome), outcome); err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("request row %d", rr.rowNum), err)
		return
	}

	_, err := e.notifier.Notify(ctx, proposerID, notify.Payload{
		Title:  "Trade request rejected",
		Body:   FormatReasons(reasons),
		Accent: notify.AccentDeclined,
	})
	if err != nil {
		slog.Warn("Failed to deliver rejection notice",
			slog.String("type", "trade"),
			slog.Int("row", rr.rowNum),
			slog.Any("error", err))
	}

	slog.Info("Trade request rejected",
		slog.String("type", "trade"),
		slog.Int("row", rr.rowNum),
		slog.Int("reasons", len(reasons)))
}

// newTradeID allocates a time-derived, strictly increasing id.
func (e *Engine) newTradeID() string {
	id := snowflake.New(time.Now())
	if uint64(id) <= e.lastTradeID {
		id = snowflake.ID(e.lastTradeID + 1)
	}
	e.lastTradeID = uint64(id)
	return id.String()
}

func offerPayload(offer *Offer, slot int) notify.Payload {
	mine := offer.Participants[slot]
	theirs := offer.Other(slot)

	return notify.Payload{
		Title: "Trade Offer",
		Body: fmt.Sprintf("Swap your **%s** for **%s** from %s?",
			mine.Card, theirs.Card, theirs.Name),
		TradeID: offer.TradeID,
		Accent:  notify.AccentNeutral,
		Buttons: []notify.Button{
			{Label: "Accept", CustomID: AcceptCustomID(offer.TradeID)},
			{Label: "Decline", CustomID: DeclineCustomID(offer.TradeID), Danger: true},
		},
	}
}
