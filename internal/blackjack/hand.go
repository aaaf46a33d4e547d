package blackjack

// ReduceTotal sums a hand, counting aces as 1 wherever 11 would bust it.
// Each ace softens at most once. usableAce is set when the hand holds an ace
// and the reduced total is still 21 or less.
func ReduceTotal(cards []Card) (total int, usableAce bool) {
	aces := 0
	for _, c := range cards {
		total += int(c)
		if c == Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	hasAce := false
	for _, c := range cards {
		if c == Ace {
			hasAce = true
			break
		}
	}
	return total, hasAce && total <= 21
}

// Total is ReduceTotal without the ace flag.
func Total(cards []Card) int {
	t, _ := ReduceTotal(cards)
	return t
}

// BuildState reduces a player hand and the dealer upcard to a State.
func BuildState(cards []Card, upcard Card) State {
	total, usable := ReduceTotal(cards)
	ace := 0
	if usable {
		ace = 1
	}
	return State{PlayerTotal: total, UsableAce: ace, DealerUpcard: int(upcard)}
}
