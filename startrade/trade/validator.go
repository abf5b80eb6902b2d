package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hyeseon-dev/startrade/startrade/directory"
	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/pool"
)

type ReasonCode string

const (
	ReasonOwnership     ReasonCode = "ownership"
	ReasonEligibility   ReasonCode = "eligibility"
	ReasonRepeatPartner ReasonCode = "repeat_partner"
)

// Reason is one failed validation check, phrased for the participant who has
// to read it.
type Reason struct {
	Code    ReasonCode
	Message string
}

func (r Reason) String() string {
	return r.Message
}

// FormatReasons joins reasons into one user-facing block.
func FormatReasons(reasons []Reason) string {
	lines := make([]string, len(reasons))
	for i, r := range reasons {
		lines[i] = "• " + r.Message
	}
	return strings.Join(lines, "\n")
}

// Validator runs every pre-trade check and reports all failures together, so
// the proposer sees the full list instead of one reason per attempt.
type Validator struct {
	gateway       ledger.Gateway
	resolver      pool.Resolver
	requestsSheet string
}

func NewValidator(gateway ledger.Gateway, resolver pool.Resolver, requestsSheet string) *Validator {
	if gateway == nil {
		panic("ledger gateway cannot be nil")
	}
	if resolver == nil {
		panic("pool resolver cannot be nil")
	}
	return &Validator{gateway: gateway, resolver: resolver, requestsSheet: requestsSheet}
}

// Validate checks ownership, eligibility in both directions, and the
// no-repeat-partner rule for a candidate trade. A nil reason slice means the
// trade is valid. A non-nil error is a data-integrity failure (unresolvable
// pool, unreadable sheet), not a business verdict.
func (v *Validator) Validate(ctx context.Context, a, b *directory.Player, cardA, cardB string) ([]Reason, error) {
	var reasons []Reason

	ownershipReason, err := v.checkOwnership(ctx, a, cardA)
	if err != nil {
		return nil, err
	}
	if ownershipReason != nil {
		reasons = append(reasons, *ownershipReason)
	}

	ownershipReason, err = v.checkOwnership(ctx, b, cardB)
	if err != nil {
		return nil, err
	}
	if ownershipReason != nil {
		reasons = append(reasons, *ownershipReason)
	}

	if ChooseCurrency(a.SilverStars, a.GoldStars, a.Opponents, b.ID) == CurrencyError {
		reasons = append(reasons, Reason{
			Code:    ReasonEligibility,
			Message: fmt.Sprintf("%s has no star to spend on this trade", a.Name),
		})
	}
	if ChooseCurrency(b.SilverStars, b.GoldStars, b.Opponents, a.ID) == CurrencyError {
		reasons = append(reasons, Reason{
			Code:    ReasonEligibility,
			Message: fmt.Sprintf("%s has no star to spend on this trade", b.Name),
		})
	}

	repeated, err := v.tradedBefore(ctx, a.Name, b.Name)
	if err != nil {
		return nil, err
	}
	if repeated {
		reasons = append(reasons, Reason{
			Code:    ReasonRepeatPartner,
			Message: fmt.Sprintf("%s and %s have already completed a trade with each other", a.Name, b.Name),
		})
	}

	return reasons, nil
}

func (v *Validator) checkOwnership(ctx context.Context, p *directory.Player, card string) (*Reason, error) {
	currentPool, err := v.resolver.CurrentPool(ctx, p.Name)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve current pool for %s: %w", p.Name, err)
	}

	if currentPool.Contains(card) {
		return nil, nil
	}

	msg := fmt.Sprintf("%s does not own %q", p.Name, card)
	if suggestion := closestCard(currentPool, card); suggestion != "" {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, suggestion)
	}
	return &Reason{Code: ReasonOwnership, Message: msg}, nil
}

// closestCard fuzzy-matches the offered name against the pool for a
// "did you mean" hint on typos.
func closestCard(p *pool.Pool, card string) string {
	matches := fuzzy.Find(pool.NormalizeCard(card), normalizedNames(p))
	if len(matches) == 0 {
		return ""
	}
	return p.Names()[matches[0].Index]
}

func normalizedNames(p *pool.Pool) []string {
	names := p.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pool.NormalizeCard(n)
	}
	return out
}

// tradedBefore scans completed request rows for a prior trade between the same
// unordered pair. One completed trade blocks the pair for good.
func (v *Validator) tradedBefore(ctx context.Context, nameA, nameB string) (bool, error) {
	rows, err := v.gateway.ReadRows(ctx, v.requestsSheet)
	if err != nil {
		return false, fmt.Errorf("failed to read trade history: %w", err)
	}

	for i, row := range rows {
		rr := parseRequestRow(i+1, row)
		if rr.outcome != OutcomeCompleted {
			continue
		}
		if samePair(rr.nameA, rr.nameB, nameA, nameB) {
			return true, nil
		}
	}
	return false, nil
}

func samePair(a1, b1, a2, b2 string) bool {
	eq := strings.EqualFold
	return (eq(a1, a2) && eq(b1, b2)) || (eq(a1, b2) && eq(b1, a2))
}
