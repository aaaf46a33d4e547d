package qtable

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
)

// #region values
// Values holds the action-value estimates for one state, indexed by Action.
type Values [blackjack.NumActions]float64

// Best returns the highest-valued action. Ties go to the first action in
// blackjack.Actions order.
func (v Values) Best() blackjack.Action {
	best := blackjack.Actions[0]
	for _, a := range blackjack.Actions[1:] {
		if v[a] > v[best] {
			best = a
		}
	}
	return best
}

// Max returns the largest value.
func (v Values) Max() float64 {
	return v[v.Best()]
}

// Finite reports whether every value is a finite number.
func (v Values) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// #endregion values

// #region table
// Table maps states to action values. A table built by New holds every
// in-domain state and never grows.
type Table struct {
	entries map[blackjack.State]*Values
}

// New returns a table with every in-domain state initialised to zero.
func New() *Table {
	t := &Table{entries: make(map[blackjack.State]*Values, Size)}
	for _, s := range DomainStates() {
		t.entries[s] = &Values{}
	}
	return t
}

// Size is the number of in-domain states.
const Size = (blackjack.MaxPlayerTotal - blackjack.MinPlayerTotal + 1) * 2 *
	(blackjack.MaxDealerUpcard - blackjack.MinDealerUpcard + 1)

// DomainStates lists every in-domain state in key order.
func DomainStates() []blackjack.State {
	out := make([]blackjack.State, 0, Size)
	for total := blackjack.MinPlayerTotal; total <= blackjack.MaxPlayerTotal; total++ {
		for ace := 0; ace <= 1; ace++ {
			for up := blackjack.MinDealerUpcard; up <= blackjack.MaxDealerUpcard; up++ {
				out = append(out, blackjack.State{PlayerTotal: total, UsableAce: ace, DealerUpcard: up})
			}
		}
	}
	return out
}

// Lookup returns a copy of the values for s.
func (t *Table) Lookup(s blackjack.State) (Values, bool) {
	v, ok := t.entries[s]
	if !ok {
		return Values{}, false
	}
	return *v, true
}

// Ref returns the mutable entry for s, or nil when s is not in the table.
// Only the trainer writes through it.
func (t *Table) Ref(s blackjack.State) *Values {
	return t.entries[s]
}

// Set stores v for s, adding the state when absent.
func (t *Table) Set(s blackjack.State, v Values) {
	if t.entries == nil {
		t.entries = make(map[blackjack.State]*Values)
	}
	t.entries[s] = &v
}

// Len returns the number of states.
func (t *Table) Len() int {
	return len(t.entries)
}

// States returns all keys sorted by total, ace flag, then upcard.
func (t *Table) States() []blackjack.State {
	out := make([]blackjack.State, 0, len(t.entries))
	for s := range t.entries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// Equal reports whether both tables hold the same keys with bit-identical values.
func (t *Table) Equal(o *Table) bool {
	return len(Diff(t, o)) == 0
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{entries: make(map[blackjack.State]*Values, len(t.entries))}
	for s, v := range t.entries {
		cp := *v
		c.entries[s] = &cp
	}
	return c
}

// Missing returns the in-domain states the table has no entry for.
func (t *Table) Missing() []blackjack.State {
	var out []blackjack.State
	for _, s := range DomainStates() {
		if _, ok := t.entries[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Finite reports whether every value in the table is finite.
func (t *Table) Finite() bool {
	for _, v := range t.entries {
		if !v.Finite() {
			return false
		}
	}
	return true
}

// #endregion table

// #region diff
// StateDiff describes one key whose values differ between two tables.
// Missing is set when the key exists in only one of them.
type StateDiff struct {
	State   blackjack.State
	Left    Values
	Right   Values
	Missing bool
}

// Diff lists every differing key in sorted order. Values are compared by
// bit pattern so that a round trip must be exact.
func Diff(a, b *Table) []StateDiff {
	var out []StateDiff
	for s, av := range a.entries {
		bv, ok := b.entries[s]
		if !ok {
			out = append(out, StateDiff{State: s, Left: *av, Missing: true})
			continue
		}
		if !sameBits(*av, *bv) {
			out = append(out, StateDiff{State: s, Left: *av, Right: *bv})
		}
	}
	for s, bv := range b.entries {
		if _, ok := a.entries[s]; !ok {
			out = append(out, StateDiff{State: s, Right: *bv, Missing: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i].State, out[j].State)
	})
	return out
}

func sameBits(a, b Values) bool {
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// #endregion diff

func less(a, b blackjack.State) bool {
	if a.PlayerTotal != b.PlayerTotal {
		return a.PlayerTotal < b.PlayerTotal
	}
	if a.UsableAce != b.UsableAce {
		return a.UsableAce < b.UsableAce
	}
	return a.DealerUpcard < b.DealerUpcard
}
