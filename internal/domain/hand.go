package domain

// BlackjackTotal is the best possible hand total.
const BlackjackTotal = 21

// Total returns the best blackjack total for the cards: every ace starts at
// 11 and is reduced to 1 while the total exceeds 21.
func Total(cards []Card) int {
	total, _ := evaluate(cards)
	return total
}

// IsSoft reports whether the best total still counts an ace as 11.
func IsSoft(cards []Card) bool {
	_, soft := evaluate(cards)
	return soft
}

// IsBlackjack reports a natural: exactly two cards totalling 21.
func IsBlackjack(cards []Card) bool {
	return len(cards) == 2 && Total(cards) == BlackjackTotal
}

// IsBust reports whether the total exceeds 21.
func IsBust(cards []Card) bool {
	return Total(cards) > BlackjackTotal
}

func evaluate(cards []Card) (int, bool) {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Value()
		if c.Rank == Ace {
			aces++
		}
	}
	for total > BlackjackTotal && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}
