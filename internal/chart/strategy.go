package chart

import (
	"fmt"
	"io"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/logrusorgru/aurora"
)

// PrintStrategy writes the greedy action grid for one ace flag: player
// totals down, dealer upcards across. Stand is green, Hit blue, and states
// whose values were never moved from zero print as "-".
func PrintStrategy(w io.Writer, t *qtable.Table, usableAce int, color bool) error {
	au := aurora.NewAurora(color)

	label := "hard"
	if usableAce == 1 {
		label = "soft"
	}
	if _, err := fmt.Fprintf(w, "%-5s", label); err != nil {
		return err
	}
	for up := blackjack.MinDealerUpcard; up <= blackjack.MaxDealerUpcard; up++ {
		fmt.Fprintf(w, "%3s", upcardLabel(up))
	}
	fmt.Fprintln(w)

	for total := blackjack.MaxPlayerTotal; total >= blackjack.MinPlayerTotal; total-- {
		fmt.Fprint(w, au.White(fmt.Sprintf("%4d|", total)))
		for up := blackjack.MinDealerUpcard; up <= blackjack.MaxDealerUpcard; up++ {
			v, ok := t.Lookup(blackjack.State{PlayerTotal: total, UsableAce: usableAce, DealerUpcard: up})
			switch {
			case !ok || v == (qtable.Values{}):
				fmt.Fprintf(w, "%3s", "-")
			case v.Best() == blackjack.Stand:
				fmt.Fprint(w, au.Green(fmt.Sprintf("%3s", "S")))
			default:
				fmt.Fprint(w, au.Blue(fmt.Sprintf("%3s", "H")))
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func upcardLabel(up int) string {
	if up == int(blackjack.Ace) {
		return "A"
	}
	return fmt.Sprintf("%d", up)
}
