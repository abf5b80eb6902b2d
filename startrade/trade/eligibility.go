package trade

// Currency is the star a participant spends to complete a trade.
type Currency string

const (
	CurrencySilver Currency = "silver"
	CurrencyGold   Currency = "gold"
	// CurrencyError means the participant cannot pay for the trade at all.
	CurrencyError Currency = "error"
)

// ChooseCurrency decides which star a participant spends against a given
// counterpart. Silver is only spendable against an opponent already in the
// participant's played history; gold works against anyone. No I/O, no clock:
// the inputs are the whole story.
func ChooseCurrency(silverStars, goldStars int, opponents []string, counterpartID string) Currency {
	played := false
	for _, id := range opponents {
		if id == counterpartID {
			played = true
			break
		}
	}

	if played && silverStars > 0 {
		return CurrencySilver
	}
	if goldStars > 0 {
		return CurrencyGold
	}
	return CurrencyError
}
