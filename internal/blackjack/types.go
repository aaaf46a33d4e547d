package blackjack

import "fmt"

// #region card
// Card is a dealt card value in 2..11. 11 is an ace counted high.
type Card int

// Ace is the high value of an ace before softening.
const Ace Card = 11

// #endregion card

// #region action
// Action is a player decision. The declaration order is the tie-break order.
type Action int

const (
	Hit Action = iota
	Stand
)

// NumActions is the size of the action space.
const NumActions = 2

// Actions lists every action in iteration order.
var Actions = [NumActions]Action{Hit, Stand}

func (a Action) String() string {
	switch a {
	case Hit:
		return "Hit"
	case Stand:
		return "Stand"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// MarshalText encodes the action as "Hit" or "Stand".
func (a Action) MarshalText() ([]byte, error) {
	if a != Hit && a != Stand {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts "Hit" or "Stand".
func (a *Action) UnmarshalText(b []byte) error {
	p, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = p
	return nil
}

// ParseAction maps a name to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "Hit":
		return Hit, nil
	case "Stand":
		return Stand, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// #endregion action

// #region state
// State is the reduced view of a round used as the value-table key.
// Hands with different card sequences but the same reduction share a State.
type State struct {
	PlayerTotal  int
	UsableAce    int // 0 or 1
	DealerUpcard int
}

// Array returns the state as [total, ace, upcard].
func (s State) Array() [3]int {
	return [3]int{s.PlayerTotal, s.UsableAce, s.DealerUpcard}
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.PlayerTotal, s.UsableAce, s.DealerUpcard)
}

// State domain bounds. Every in-range combination exists in a fresh table.
const (
	MinPlayerTotal  = 4
	MaxPlayerTotal  = 21
	MinDealerUpcard = 2
	MaxDealerUpcard = 11
)

// InDomain reports whether s lies inside the pre-initialised ranges.
func (s State) InDomain() bool {
	return s.PlayerTotal >= MinPlayerTotal && s.PlayerTotal <= MaxPlayerTotal &&
		(s.UsableAce == 0 || s.UsableAce == 1) &&
		s.DealerUpcard >= MinDealerUpcard && s.DealerUpcard <= MaxDealerUpcard
}

// #endregion state

// Rewards are paid once, at round end.
const (
	RewardWin  = 1
	RewardLoss = -1
	RewardPush = 0
)
