package blackjack

import (
	"math/rand"
	"testing"
)

// #region helpers
// scriptedSource deals a fixed sequence of cards.
type scriptedSource struct {
	t     *testing.T
	cards []Card
	next  int
}

func script(t *testing.T, cards ...Card) *scriptedSource {
	t.Helper()
	return &scriptedSource{t: t, cards: cards}
}

func (s *scriptedSource) Draw() Card {
	if s.next >= len(s.cards) {
		s.t.Fatalf("scripted source exhausted after %d draws", s.next)
	}
	c := s.cards[s.next]
	s.next++
	return c
}

// #endregion helpers

// #region deck-tests
func TestDeckDrawsValidValues(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	counts := map[Card]int{}
	const n = 130000
	for i := 0; i < n; i++ {
		c := d.Draw()
		if c < 2 || c > 11 {
			t.Fatalf("card out of range: %d", c)
		}
		counts[c]++
	}
	if len(counts) != 10 {
		t.Fatalf("expected 10 distinct values, got %d: %v", len(counts), counts)
	}
	// Four of 13 ranks collapse to 10.
	tens := float64(counts[10]) / n
	if tens < 0.29 || tens > 0.33 {
		t.Errorf("expected ten frequency near 4/13, got %.4f", tens)
	}
	aces := float64(counts[Ace]) / n
	if aces < 0.07 || aces > 0.085 {
		t.Errorf("expected ace frequency near 1/13, got %.4f", aces)
	}
}

func TestDeckSeeded(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(42)))
	b := NewDeck(rand.New(rand.NewSource(42)))
	for i := 0; i < 1000; i++ {
		if x, y := a.Draw(), b.Draw(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

// #endregion deck-tests

// #region hand-tests
func TestReduceTotal(t *testing.T) {
	tests := []struct {
		name   string
		cards  []Card
		total  int
		usable bool
	}{
		{"hard 20", []Card{10, 10}, 20, false},
		{"soft 17", []Card{11, 6}, 17, true},
		{"blackjack", []Card{11, 10}, 21, true},
		{"pair of aces", []Card{11, 11}, 12, true},
		{"softened ace still flagged", []Card{11, 5, 8}, 14, true},
		{"hard bust", []Card{10, 5, 8}, 23, false},
		{"three aces", []Card{11, 11, 11}, 13, true},
		{"aces cannot save", []Card{11, 11, 11, 10, 10}, 23, false},
		{"ace bust", []Card{11, 10, 5, 9}, 25, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, usable := ReduceTotal(tt.cards)
			if total != tt.total || usable != tt.usable {
				t.Fatalf("ReduceTotal(%v) = (%d, %v), want (%d, %v)", tt.cards, total, usable, tt.total, tt.usable)
			}
		})
	}
}

func TestReduceTotalProperties(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(7)))
	for i := 0; i < 20000; i++ {
		n := 1 + i%7
		cards := make([]Card, n)
		raw, aces := 0, 0
		for j := range cards {
			cards[j] = d.Draw()
			raw += int(cards[j])
			if cards[j] == Ace {
				aces++
			}
		}
		total, usable := ReduceTotal(cards)
		lowest := raw - 10*aces
		if lowest <= 21 && total > 21 {
			t.Fatalf("%v: softening could reach %d but got %d", cards, lowest, total)
		}
		if total > 21 && total != lowest {
			t.Fatalf("%v: bust total %d should be fully softened %d", cards, total, lowest)
		}
		if usable != (aces > 0 && total <= 21) {
			t.Fatalf("%v: usable=%v with aces=%d total=%d", cards, usable, aces, total)
		}
	}
}

func TestBuildState(t *testing.T) {
	s := BuildState([]Card{11, 5}, 9)
	want := State{PlayerTotal: 16, UsableAce: 1, DealerUpcard: 9}
	if s != want {
		t.Fatalf("expected %v, got %v", want, s)
	}
	if s.Array() != [3]int{16, 1, 9} {
		t.Fatalf("unexpected array %v", s.Array())
	}
}

// #endregion hand-tests

// #region dealer-tests
func TestDealerDrawsToSeventeen(t *testing.T) {
	src := script(t, 6, 2)
	cards := PlayDealerHand(src, 10)
	if len(cards) != 3 || Total(cards) != 18 {
		t.Fatalf("expected 10,6,2 = 18, got %v", cards)
	}
}

func TestDealerStandsOnSoft17(t *testing.T) {
	src := script(t, 6)
	cards := PlayDealerHand(src, Ace)
	if len(cards) != 2 || Total(cards) != 17 {
		t.Fatalf("expected dealer to stand on soft 17, got %v", cards)
	}
}

func TestDealerNeverStopsBelow17(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(3)))
	for i := 0; i < 10000; i++ {
		up := d.Draw()
		cards := PlayDealerHand(d, up)
		if cards[0] != up {
			t.Fatalf("dealer hand must start with the upcard")
		}
		if total := Total(cards); total < 17 {
			t.Fatalf("dealer stopped at %d: %v", total, cards)
		}
		if prefix := Total(cards[:len(cards)-1]); len(cards) > 2 && prefix >= 17 {
			t.Fatalf("dealer drew past %d: %v", prefix, cards)
		}
	}
}

// #endregion dealer-tests

// #region env-tests
func TestDealOrder(t *testing.T) {
	env := NewEnv(script(t, 10, 6, 9))
	r := env.Deal()
	if len(r.Player) != 2 || r.Player[0] != 10 || r.Player[1] != 6 {
		t.Fatalf("unexpected player hand %v", r.Player)
	}
	if r.Upcard != 9 {
		t.Fatalf("expected upcard 9, got %d", r.Upcard)
	}
	if r.State != (State{PlayerTotal: 16, UsableAce: 0, DealerUpcard: 9}) {
		t.Fatalf("unexpected state %v", r.State)
	}
}

func TestHitBust(t *testing.T) {
	env := NewEnv(script(t, 5))
	hand := []Card{10, 10}
	s := State{PlayerTotal: 20, UsableAce: 0, DealerUpcard: 7}

	out := env.Transition(s, Hit, &hand, 7)
	if out.Reward != RewardLoss || !out.Done {
		t.Fatalf("expected bust (-1, done), got %+v", out)
	}
	if len(hand) != 3 {
		t.Fatalf("expected hand to grow in place, got %v", hand)
	}
	if out.DealerCards != nil {
		t.Fatal("dealer must not play after a player bust")
	}
}

func TestHitContinues(t *testing.T) {
	env := NewEnv(script(t, Ace))
	hand := []Card{2, 3}
	out := env.Transition(BuildState(hand, 7), Hit, &hand, 7)
	if out.Done || out.Reward != 0 {
		t.Fatalf("expected non-terminal step, got %+v", out)
	}
	want := State{PlayerTotal: 16, UsableAce: 1, DealerUpcard: 7}
	if out.Next != want {
		t.Fatalf("expected %v, got %v", want, out.Next)
	}
}

func TestStandWin(t *testing.T) {
	// Dealer: 10 up, draws 8 for 18.
	env := NewEnv(script(t, 8))
	hand := []Card{10, 10}
	out := env.Transition(BuildState(hand, 10), Stand, &hand, 10)
	if out.Reward != RewardWin || !out.Done {
		t.Fatalf("expected win, got %+v", out)
	}
	if Total(out.DealerCards) != 18 {
		t.Fatalf("expected dealer 18, got %v", out.DealerCards)
	}
}

func TestStandOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		hand   []Card
		upcard Card
		draws  []Card
		reward int
	}{
		{"dealer bust", []Card{10, 2}, 10, []Card{6, 10}, RewardWin},
		{"dealer higher", []Card{10, 7}, 10, []Card{9}, RewardLoss},
		{"push", []Card{10, 8}, 10, []Card{8}, RewardPush},
		{"player higher", []Card{10, 9}, 9, []Card{9}, RewardWin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnv(script(t, tt.draws...))
			hand := tt.hand
			out := env.Transition(BuildState(hand, tt.upcard), Stand, &hand, tt.upcard)
			if !out.Done || out.Reward != tt.reward {
				t.Fatalf("expected reward %d, got %+v", tt.reward, out)
			}
		})
	}
}

func TestSettle(t *testing.T) {
	if settle(22, 25) != RewardLoss {
		t.Fatal("player bust must lose even when dealer busts")
	}
	if settle(12, 22) != RewardWin {
		t.Fatal("dealer bust must win")
	}
	if settle(19, 19) != RewardPush {
		t.Fatal("equal totals must push")
	}
}

func TestStepAdvancesRound(t *testing.T) {
	env := NewEnv(script(t, 2, 3, 7, 4, 10))
	r := env.Deal()
	out := env.Step(r, Hit)
	if out.Done || r.State.PlayerTotal != 9 {
		t.Fatalf("expected round at 9, got %+v / %v", out, r.State)
	}
	out = env.Step(r, Hit)
	if out.Done || r.State.PlayerTotal != 19 {
		t.Fatalf("expected round at 19, got %+v / %v", out, r.State)
	}
	if len(r.Player) != 4 {
		t.Fatalf("expected 4 cards in hand, got %v", r.Player)
	}
}

// #endregion env-tests

func TestActionText(t *testing.T) {
	for _, a := range Actions {
		b, err := a.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var back Action
		if err := back.UnmarshalText(b); err != nil || back != a {
			t.Fatalf("text round trip failed for %v: %v", a, err)
		}
	}
	if _, err := ParseAction("Double"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestInDomain(t *testing.T) {
	if !(State{4, 0, 2}).InDomain() || !(State{21, 1, 11}).InDomain() {
		t.Fatal("bounds should be in domain")
	}
	if (State{25, 0, 7}).InDomain() || (State{12, 2, 7}).InDomain() || (State{12, 0, 1}).InDomain() {
		t.Fatal("out-of-range states should not be in domain")
	}
}
