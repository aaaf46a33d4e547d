package blackjack

// #region outcome
// Outcome is the result of one transition. Next is meaningful only when
// Done is false. DealerCards is set when the dealer played (Stand).
type Outcome struct {
	Next        State
	Reward      int
	Done        bool
	DealerCards []Card
}

// #endregion outcome

// #region round
// Round is one hand in progress. It belongs to the driver that dealt it and
// must not be shared across rounds or goroutines.
type Round struct {
	Player []Card
	Upcard Card
	State  State
	Done   bool
}

// #endregion round

// #region env
// Env is the blackjack transition function over a card source.
type Env struct {
	src CardSource
}

// NewEnv creates an environment dealing from src.
func NewEnv(src CardSource) *Env {
	return &Env{src: src}
}

// Source returns the card source the environment deals from.
func (e *Env) Source() CardSource {
	return e.src
}

// Deal starts a round: two player cards, then the dealer upcard.
func (e *Env) Deal() *Round {
	player := []Card{e.src.Draw(), e.src.Draw()}
	upcard := e.src.Draw()
	return &Round{
		Player: player,
		Upcard: upcard,
		State:  BuildState(player, upcard),
	}
}

// Step applies a to the round, appending to its hand on Hit and advancing
// its State when the round continues.
func (e *Env) Step(r *Round, a Action) Outcome {
	out := e.Transition(r.State, a, &r.Player, r.Upcard)
	if out.Done {
		r.Done = true
	} else {
		r.State = out.Next
	}
	return out
}

// Transition is the round's transition function. hand is the player's
// accumulated hand and is extended in place on Hit.
func (e *Env) Transition(s State, a Action, hand *[]Card, upcard Card) Outcome {
	if a == Stand {
		dealer := PlayDealerHand(e.src, Card(s.DealerUpcard))
		return Outcome{
			Reward:      settle(Total(*hand), Total(dealer)),
			Done:        true,
			DealerCards: dealer,
		}
	}

	*hand = append(*hand, e.src.Draw())
	if Total(*hand) > 21 {
		return Outcome{Reward: RewardLoss, Done: true}
	}
	return Outcome{Next: BuildState(*hand, upcard), Reward: RewardPush}
}

// #endregion env

// settle compares final soft totals. A busted player loses before the
// dealer's total is considered.
func settle(player, dealer int) int {
	switch {
	case player > 21:
		return RewardLoss
	case dealer > 21:
		return RewardWin
	case player > dealer:
		return RewardWin
	case player < dealer:
		return RewardLoss
	default:
		return RewardPush
	}
}
