package trade

import (
	"context"
	"strings"
	"testing"

	"github.com/hyeseon-dev/startrade/startrade/directory"
	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

func (f *fixture) players(t *testing.T) (*directory.Player, *directory.Player) {
	t.Helper()
	ctx := context.Background()
	alice, err := f.dir.ByName(ctx, "Alice")
	if err != nil {
		t.Fatalf("cannot resolve Alice: %v", err)
	}
	bob, err := f.dir.ByName(ctx, "Bob")
	if err != nil {
		t.Fatalf("cannot resolve Bob: %v", err)
	}
	return alice, bob
}

func TestValidateAcceptsCleanTrade(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.players(t)

	reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card X", "Card Y")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(reasons) != 0 {
		t.Errorf("clean trade rejected: %v", reasons)
	}
}

func TestValidateNamesOwnerAndCard(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.players(t)

	reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card X", "Card Q")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(reasons) != 1 {
		t.Fatalf("got %d reasons, want 1: %v", len(reasons), reasons)
	}
	if reasons[0].Code != ReasonOwnership {
		t.Errorf("reason code = %s, want %s", reasons[0].Code, ReasonOwnership)
	}
	if !strings.Contains(reasons[0].Message, "Bob") || !strings.Contains(reasons[0].Message, "Card Q") {
		t.Errorf("reason %q does not name the participant and card", reasons[0].Message)
	}
}

func TestValidateSuggestsClosestCard(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.players(t)

	// "Card" is a truncated "Card Y", close enough for a hint.
	reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card X", "Card")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(reasons) != 1 {
		t.Fatalf("got %d reasons, want 1: %v", len(reasons), reasons)
	}
	if !strings.Contains(reasons[0].Message, "did you mean") {
		t.Errorf("reason %q carries no suggestion", reasons[0].Message)
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.players(t)

	// Neither side owns the offered card.
	reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card Y", "Card X")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(reasons) != 2 {
		t.Errorf("got %d reasons, want both ownership failures: %v", len(reasons), reasons)
	}
}

func TestValidateEligibility(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.players(t)

	bob.GoldStars = 0
	reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card X", "Card Y")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(reasons) != 1 || reasons[0].Code != ReasonEligibility {
		t.Fatalf("got %v, want one eligibility failure", reasons)
	}
	if !strings.Contains(reasons[0].Message, "Bob") {
		t.Errorf("reason %q does not name the broke participant", reasons[0].Message)
	}
}

func TestValidateNoRepeatPartner(t *testing.T) {
	tests := []struct {
		name string
		row  ledger.Row
		want int
	}{
		{
			name: "same order",
			row:  ledger.Row{"Alice", "Opt", "Bob", "Card Y", "", "accept", "accept", OutcomeCompleted},
			want: 1,
		},
		{
			name: "reversed order",
			row:  ledger.Row{"Bob", "Card Y", "Alice", "Opt", "", "accept", "accept", OutcomeCompleted},
			want: 1,
		},
		{
			name: "declined history does not block",
			row:  ledger.Row{"Alice", "Opt", "Bob", "Card Y", "", "decline", "", OutcomeDeclined},
			want: 0,
		},
		{
			name: "completed trade with someone else does not block",
			row:  ledger.Row{"Alice", "Opt", "Carol", "Card Q", "", "accept", "accept", OutcomeCompleted},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gw.Seed(testSheets.Requests, []ledger.Row{tt.row})
			alice, bob := f.players(t)

			reasons, err := f.engine.validator.Validate(context.Background(), alice, bob, "Card X", "Card Y")
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if len(reasons) != tt.want {
				t.Errorf("got %d reasons, want %d: %v", len(reasons), tt.want, reasons)
			}
			if tt.want == 1 && reasons[0].Code != ReasonRepeatPartner {
				t.Errorf("reason code = %s, want %s", reasons[0].Code, ReasonRepeatPartner)
			}
		})
	}
}

func TestFormatReasons(t *testing.T) {
	out := FormatReasons([]Reason{
		{Code: ReasonOwnership, Message: "first"},
		{Code: ReasonEligibility, Message: "second"},
	})
	if out != "• first\n• second" {
		t.Errorf("FormatReasons = %q", out)
	}
}
