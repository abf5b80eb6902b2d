package trade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hyeseon-dev/startrade/startrade/logger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
)

// Custom id routes baked into notification buttons. The commands layer parses
// them back with TradeIDFromCustomID.
const (
	acceptRoute  = "/trade/accept/"
	declineRoute = "/trade/decline/"
)

func AcceptCustomID(tradeID string) string {
	return acceptRoute + tradeID
}

func DeclineCustomID(tradeID string) string {
	return declineRoute + tradeID
}

// TradeIDFromCustomID strips the route prefix off a button custom id.
func TradeIDFromCustomID(customID string) string {
	if id, ok := strings.CutPrefix(customID, acceptRoute); ok {
		return id
	}
	if id, ok := strings.CutPrefix(customID, declineRoute); ok {
		return id
	}
	return ""
}

// Action is one participant's reply to a trade notification.
type Action struct {
	TradeID string
	ActorID string
	Ref     notify.Ref
	Accept  bool
}

type ResultKind string

const (
	// ResultStale: the trade is gone from the registry; a normal outcome for
	// buttons pressed after settlement or decline.
	ResultStale ResultKind = "stale"
	// ResultMismatch: the notification ref belongs to no side of the trade.
	ResultMismatch ResultKind = "mismatch"
	// ResultDuplicate: this side already gave a terminal response.
	ResultDuplicate ResultKind = "duplicate"
	// ResultUnauthorized: the actor is not the participant the notification
	// was addressed to.
	ResultUnauthorized ResultKind = "unauthorized"
	// ResultAwaitingOther: accept recorded; the counterpart has not replied.
	ResultAwaitingOther ResultKind = "awaiting_other"
	ResultDeclined      ResultKind = "declined"
	ResultCompleted     ResultKind = "completed"
	// ResultInvalid: both sides accepted but re-validation failed; the trade
	// stays registered for manual resolution.
	ResultInvalid ResultKind = "invalid"
	// ResultSettlementFailed: the executor failed; the trade stays registered.
	ResultSettlementFailed ResultKind = "settlement_failed"
)

// Result is what the response handler reports back to the acting user's
// surface. Reasons is set only for ResultInvalid.
type Result struct {
	Kind    ResultKind
	Offer   Offer
	Reasons []Reason
}

// HandleResponse runs the full response protocol for one accept or decline
// press. The whole invocation is a single critical section under the trade
// lock, ledger and notifier I/O included.
func (e *Engine) HandleResponse(ctx context.Context, act Action) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer := e.registry.Get(act.TradeID)
	if offer == nil {
		return Result{Kind: ResultStale}, nil
	}

	slot, ok := offer.SlotByRef(act.Ref)
	if !ok {
		return Result{Kind: ResultMismatch, Offer: *offer},
			fmt.Errorf("notification ref %q matches no side of trade %s", act.Ref, act.TradeID)
	}

	side := &offer.Participants[slot]
	if side.Response.Terminal() {
		return Result{Kind: ResultDuplicate, Offer: *offer}, nil
	}

	if act.ActorID != side.UserID {
		return Result{Kind: ResultUnauthorized, Offer: *offer}, nil
	}

	response := ResponseAccept
	if !act.Accept {
		response = ResponseDecline
	}

	// Write-before-acknowledge: the row carries the response before anything
	// in memory does, so a crash here replays cleanly from the ledger.
	cell := e.requestCell(offer.RowNum, responseCol(slot))
	if err := e.gateway.WriteCell(ctx, cell, string(response)); err != nil {
		return Result{}, fmt.Errorf("failed to persist response for trade %s: %w", act.TradeID, err)
	}
	side.Response = response

	logger.LogTrade("Trade response recorded", offer.TradeID,
		slog.String("participant", side.Name),
		slog.String("response", string(response)))

	if response == ResponseDecline {
		return e.finishDeclined(ctx, offer, slot)
	}
	if !offer.Other(slot).Response.Terminal() {
		return Result{Kind: ResultAwaitingOther, Offer: *offer}, nil
	}
	return e.settle(ctx, offer, slot)
}

func (e *Engine) finishDeclined(ctx context.Context, offer *Offer, slot int) (Result, error) {
	outcomeCell := e.requestCell(offer.RowNum, reqColOutcome)
	if err := e.gateway.WriteCell(ctx, outcomeCell, OutcomeDeclined); err != nil {
		return Result{}, fmt.Errorf("failed to persist declined outcome for trade %s: %w", offer.TradeID, err)
	}

	decliner := &offer.Participants[slot]
	other := offer.Other(slot)

	if _, err := e.notifier.Notify(ctx, other.UserID, notify.Payload{
		Title:   "Trade Declined",
		Body:    fmt.Sprintf("%s declined the trade of %s for your %s.", decliner.Name, decliner.Card, other.Card),
		TradeID: offer.TradeID,
		Accent:  notify.AccentDeclined,
	}); err != nil {
		slog.Warn("Failed to deliver decline notice",
			slog.String("type", "trade"),
			slog.String("trade_id", offer.TradeID),
			slog.Any("error", err))
	}

	e.clearButtons(ctx, offer, "Trade Declined", notify.AccentDeclined)
	e.registry.Remove(offer.TradeID)

	logger.LogTrade("Trade declined", offer.TradeID,
		slog.String("declined_by", decliner.Name))
	return Result{Kind: ResultDeclined, Offer: *offer}, nil
}

// settle runs once both sides have accepted: re-validate, execute, persist the
// terminal outcome, announce.
func (e *Engine) settle(ctx context.Context, offer *Offer, actedSlot int) (Result, error) {
	playerA, err := e.directory.ByName(ctx, offer.Participants[0].Name)
	if err != nil {
		return Result{}, fmt.Errorf("cannot resolve %s at settlement: %w", offer.Participants[0].Name, err)
	}
	playerB, err := e.directory.ByName(ctx, offer.Participants[1].Name)
	if err != nil {
		return Result{}, fmt.Errorf("cannot resolve %s at settlement: %w", offer.Participants[1].Name, err)
	}

	// Ownership and eligibility can have drifted since the proposal, so the
	// verdict from back then counts for nothing now.
	reasons, err := e.validator.Validate(ctx, playerA, playerB, offer.Participants[0].Card, offer.Participants[1].Card)
	if err != nil {
		return Result{}, fmt.Errorf("re-validation of trade %s failed: %w", offer.TradeID, err)
	}
	if len(reasons) > 0 {
		e.notifyBoth(ctx, offer, notify.Payload{
			Title:   "Trade On Hold",
			Body:    "The trade can no longer settle:\n" + FormatReasons(reasons),
			TradeID: offer.TradeID,
			Accent:  notify.AccentWarning,
		})
		slog.Warn("Trade failed re-validation, left for manual resolution",
			slog.String("type", "trade"),
			slog.String("trade_id", offer.TradeID),
			slog.Int("reasons", len(reasons)))
		return Result{Kind: ResultInvalid, Offer: *offer, Reasons: reasons}, nil
	}

	currencies := [2]Currency{
		ChooseCurrency(playerA.SilverStars, playerA.GoldStars, playerA.Opponents, playerB.ID),
		ChooseCurrency(playerB.SilverStars, playerB.GoldStars, playerB.Opponents, playerA.ID),
	}

	if err := e.executor.Settle(ctx, offer, currencies); err != nil {
		// Deliberately kept in the registry and off the terminal outcome:
		// the trade can be retried or resolved by hand.
		e.notifyBoth(ctx, offer, notify.Payload{
			Title:   "Trade Settlement Failed",
			Body:    "Settlement hit an error; an operator has been notified. The trade is still open.",
			TradeID: offer.TradeID,
			Accent:  notify.AccentWarning,
		})
		e.reportIntegrityFailure(ctx, fmt.Sprintf("settlement of trade %s", offer.TradeID), err)
		return Result{Kind: ResultSettlementFailed, Offer: *offer}, err
	}

	outcomeCell := e.requestCell(offer.RowNum, reqColOutcome)
	if err := e.gateway.WriteCell(ctx, outcomeCell, OutcomeCompleted); err != nil {
		e.reportIntegrityFailure(ctx, fmt.Sprintf("completed outcome of trade %s", offer.TradeID), err)
	}

	a := &offer.Participants[0]
	b := &offer.Participants[1]
	e.notifyBoth(ctx, offer, notify.Payload{
		Title:   "Trade Completed",
		Body:    fmt.Sprintf("%s's %s and %s's %s have been swapped.", a.Name, a.Card, b.Name, b.Card),
		TradeID: offer.TradeID,
		Accent:  notify.AccentAccepted,
	})
	e.clearButtons(ctx, offer, "Trade Completed", notify.AccentAccepted)
	e.registry.Remove(offer.TradeID)

	logger.LogTrade("Trade completed", offer.TradeID,
		slog.String("participant_a", a.Name),
		slog.String("participant_b", b.Name))
	return Result{Kind: ResultCompleted, Offer: *offer}, nil
}

func (e *Engine) notifyBoth(ctx context.Context, offer *Offer, p notify.Payload) {
	for i := range offer.Participants {
		if _, err := e.notifier.Notify(ctx, offer.Participants[i].UserID, p); err != nil {
			slog.Warn("Failed to deliver trade notice",
				slog.String("type", "trade"),
				slog.String("trade_id", offer.TradeID),
				slog.String("participant", offer.Participants[i].Name),
				slog.Any("error", err))
		}
	}
}

// clearButtons rewrites both original offer messages without their action
// buttons, so stale accept/decline presses stop at the surface.
func (e *Engine) clearButtons(ctx context.Context, offer *Offer, title string, accent int) {
	for i := range offer.Participants {
		ref := offer.Participants[i].NotificationRef
		if ref == "" {
			continue
		}
		if err := e.notifier.Update(ctx, ref, notify.Payload{
			Title:   title,
			TradeID: offer.TradeID,
			Accent:  accent,
		}); err != nil {
			slog.Debug("Failed to clear notification buttons",
				slog.String("type", "trade"),
				slog.String("trade_id", offer.TradeID),
				slog.Any("error", err))
		}
	}
}
