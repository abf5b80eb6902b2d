// Package trade is the negotiation and settlement engine: in-flight offer
// tracking, ledger recovery, the accept/decline protocol, eligibility and
// validation, and atomic settlement against the pool change ledger.
package trade

import (
	"encoding/json"
	"fmt"

	"github.com/hyeseon-dev/startrade/startrade/notify"
)

type Response string

const (
	ResponsePending Response = "pending"
	ResponseAccept  Response = "accept"
	ResponseDecline Response = "decline"
)

// Terminal reports whether the response can no longer change.
func (r Response) Terminal() bool {
	return r == ResponseAccept || r == ResponseDecline
}

// Participant is one side of an offer. NotificationRef correlates an incoming
// button press to this side.
type Participant struct {
	UserID          string
	Name            string
	Card            string
	Response        Response
	NotificationRef notify.Ref
}

// Offer is one in-flight trade. It is owned exclusively by the Registry and
// mutated only under the engine's trade lock.
type Offer struct {
	TradeID      string
	RowNum       int
	Participants [2]Participant
}

// SlotByRef returns the participant index the notification ref belongs to.
func (o *Offer) SlotByRef(ref notify.Ref) (int, bool) {
	for i := range o.Participants {
		if o.Participants[i].NotificationRef == ref && ref != "" {
			return i, true
		}
	}
	return -1, false
}

// Other returns the counterpart of the given slot.
func (o *Offer) Other(slot int) *Participant {
	return &o.Participants[1-slot]
}

func (o *Offer) BothAccepted() bool {
	return o.Participants[0].Response == ResponseAccept &&
		o.Participants[1].Response == ResponseAccept
}

// initiationVersion guards the blob stored in the request row. Recovery
// refuses shapes it does not know instead of guessing.
const initiationVersion = 1

type initiationState struct {
	Version       int      `json:"v"`
	TradeID       string   `json:"trade_id"`
	Notifications []string `json:"notifications"`
}

// encodeInitiation serializes the trade id and both notification refs, in
// participant order, for the request row's initiation cell.
func encodeInitiation(o *Offer) (string, error) {
	state := initiationState{
		Version: initiationVersion,
		TradeID: o.TradeID,
		Notifications: []string{
			string(o.Participants[0].NotificationRef),
			string(o.Participants[1].NotificationRef),
		},
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode initiation state: %w", err)
	}
	return string(raw), nil
}

func decodeInitiation(raw string) (string, [2]notify.Ref, error) {
	var refs [2]notify.Ref

	var state initiationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return "", refs, fmt.Errorf("malformed initiation state: %w", err)
	}
	if state.Version != initiationVersion {
		return "", refs, fmt.Errorf("unknown initiation state version %d", state.Version)
	}
	if state.TradeID == "" {
		return "", refs, fmt.Errorf("initiation state missing trade id")
	}
	if len(state.Notifications) != 2 {
		return "", refs, fmt.Errorf("initiation state has %d notification refs, want 2", len(state.Notifications))
	}

	refs[0] = notify.Ref(state.Notifications[0])
	refs[1] = notify.Ref(state.Notifications[1])
	return state.TradeID, refs, nil
}
