package trade

import "testing"

func TestChooseCurrency(t *testing.T) {
	tests := []struct {
		name        string
		silver      int
		gold        int
		opponents   []string
		counterpart string
		want        Currency
	}{
		{
			name:        "silver against a played opponent",
			silver:      1,
			gold:        1,
			opponents:   []string{"2002"},
			counterpart: "2002",
			want:        CurrencySilver,
		},
		{
			name:        "silver is unusable against a stranger",
			silver:      3,
			gold:        1,
			opponents:   []string{"3003"},
			counterpart: "2002",
			want:        CurrencyGold,
		},
		{
			name:        "silver only and never played",
			silver:      3,
			gold:        0,
			opponents:   nil,
			counterpart: "2002",
			want:        CurrencyError,
		},
		{
			name:        "gold covers a stranger",
			silver:      0,
			gold:        2,
			opponents:   nil,
			counterpart: "2002",
			want:        CurrencyGold,
		},
		{
			name:        "played but out of silver falls back to gold",
			silver:      0,
			gold:        1,
			opponents:   []string{"2002"},
			counterpart: "2002",
			want:        CurrencyGold,
		},
		{
			name:        "no stars at all",
			silver:      0,
			gold:        0,
			opponents:   []string{"2002"},
			counterpart: "2002",
			want:        CurrencyError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseCurrency(tt.silver, tt.gold, tt.opponents, tt.counterpart)
			if got != tt.want {
				t.Errorf("ChooseCurrency(%d, %d, %v, %s) = %s, want %s",
					tt.silver, tt.gold, tt.opponents, tt.counterpart, got, tt.want)
			}
		})
	}
}
