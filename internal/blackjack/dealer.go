package blackjack

// DealerStandsOn is the soft total at which the dealer stops drawing.
const DealerStandsOn = 17

// PlayDealerHand completes the dealer's hand from its upcard: one card to make
// two, then draws while the soft total is below 17. A bust is returned as is.
func PlayDealerHand(src CardSource, upcard Card) []Card {
	cards := []Card{upcard, src.Draw()}
	for Total(cards) < DealerStandsOn {
		cards = append(cards, src.Draw())
	}
	return cards
}
