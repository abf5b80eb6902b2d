package trade

import (
	"strings"
	"testing"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
)

func TestInitiationRoundTrip(t *testing.T) {
	offer := &Offer{
		TradeID: "123",
		RowNum:  7,
		Participants: [2]Participant{
			{NotificationRef: "chan1/msg1"},
			{NotificationRef: "chan2/msg2"},
		},
	}

	blob, err := encodeInitiation(offer)
	if err != nil {
		t.Fatalf("encodeInitiation failed: %v", err)
	}

	tradeID, refs, err := decodeInitiation(blob)
	if err != nil {
		t.Fatalf("decodeInitiation failed: %v", err)
	}
	if tradeID != "123" {
		t.Errorf("decoded trade id %q, want 123", tradeID)
	}
	if refs[0] != "chan1/msg1" || refs[1] != "chan2/msg2" {
		t.Errorf("decoded refs %v, want participant order preserved", refs)
	}
}

func TestDecodeInitiationRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "garbage"},
		{"unknown version", `{"v":99,"trade_id":"1","notifications":["a","b"]}`},
		{"missing trade id", `{"v":1,"notifications":["a","b"]}`},
		{"wrong ref count", `{"v":1,"trade_id":"1","notifications":["a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodeInitiation(tt.raw); err == nil {
				t.Errorf("decodeInitiation(%q) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestSlotByRef(t *testing.T) {
	offer := &Offer{
		Participants: [2]Participant{
			{NotificationRef: "a"},
			{NotificationRef: "b"},
		},
	}

	if slot, ok := offer.SlotByRef("b"); !ok || slot != 1 {
		t.Errorf("SlotByRef(b) = %d, %v, want 1, true", slot, ok)
	}
	if _, ok := offer.SlotByRef("c"); ok {
		t.Error("SlotByRef matched a foreign ref")
	}
	if _, ok := offer.SlotByRef(notify.Ref("")); ok {
		t.Error("SlotByRef matched the empty ref")
	}
}

func TestRequestRowStates(t *testing.T) {
	tests := []struct {
		name        string
		row         ledger.Row
		unprocessed bool
		resolved    bool
	}{
		{
			name:        "fresh request",
			row:         ledger.Row{"Alice", "X", "Bob", "Y"},
			unprocessed: true,
		},
		{
			name: "initiated",
			row:  ledger.Row{"Alice", "X", "Bob", "Y", "{blob}"},
		},
		{
			name:     "rejected",
			row:      ledger.Row{"Alice", "X", "Bob", "Y", "", "", "", "invalid: reasons"},
			resolved: true,
		},
		{
			name:     "one decline resolves",
			row:      ledger.Row{"Alice", "X", "Bob", "Y", "{blob}", "", "decline", ""},
			resolved: true,
		},
		{
			name:     "both accepts resolve",
			row:      ledger.Row{"Alice", "X", "Bob", "Y", "{blob}", "accept", "accept", ""},
			resolved: true,
		},
		{
			name: "half a request is ignored",
			row:  ledger.Row{"Alice", "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := parseRequestRow(1, tt.row)
			if got := rr.unprocessed(); got != tt.unprocessed {
				t.Errorf("unprocessed() = %v, want %v", got, tt.unprocessed)
			}
			if got := rr.resolved(); got != tt.resolved {
				t.Errorf("resolved() = %v, want %v", got, tt.resolved)
			}
		})
	}
}

func TestParseRequestRowTrims(t *testing.T) {
	rr := parseRequestRow(3, ledger.Row{" Alice ", " Card X ", "Bob", "Card Y"})
	if rr.nameA != "Alice" || rr.cardA != "Card X" {
		t.Errorf("parsed %q/%q, want trimmed values", rr.nameA, rr.cardA)
	}
	if rr.rowNum != 3 {
		t.Errorf("rowNum = %d, want 3", rr.rowNum)
	}
	if !strings.EqualFold(rr.nameB, "bob") {
		t.Errorf("nameB = %q", rr.nameB)
	}
}
