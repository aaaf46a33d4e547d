package blackjack

import "math/rand"

// CardSource deals single card values.
type CardSource interface {
	Draw() Card
}

// Deck models an infinite shoe: every draw is independent and uniform over
// the 13 ranks. It keeps no record of dealt cards.
type Deck struct {
	rng *rand.Rand
}

// NewDeck returns a deck drawing from rng. The caller owns seeding.
func NewDeck(rng *rand.Rand) *Deck {
	return &Deck{rng: rng}
}

// Draw consumes one value from the random source.
func (d *Deck) Draw() Card {
	rank := d.rng.Intn(13) + 1
	switch {
	case rank == 1:
		return Ace
	case rank >= 10:
		return 10
	default:
		return Card(rank)
	}
}
