package advisor

import (
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// Advice sources.
const (
	SourceTable    = "q-table"
	SourceFallback = "fallback"
)

// #region request
// Request is an advisory query. UsableAce defaults to 0 when omitted.
// Values are not range-checked; out-of-domain states take the fallback.
type Request struct {
	PlayerTotal  int `json:"player_total"`
	DealerUpcard int `json:"dealer_upcard"`
	UsableAce    int `json:"usable_ace"`
}

// State converts the request to a table key.
func (r Request) State() blackjack.State {
	return blackjack.State{
		PlayerTotal:  r.PlayerTotal,
		UsableAce:    r.UsableAce,
		DealerUpcard: r.DealerUpcard,
	}
}

// #endregion request

// #region advice
// QValues is the per-action value pair as it appears on the wire.
type QValues struct {
	Hit   float64 `json:"Hit"`
	Stand float64 `json:"Stand"`
}

// Advice is the answer to one query.
type Advice struct {
	Advice blackjack.Action `json:"advice"`
	Q      QValues          `json:"q"`
	State  [3]int           `json:"state"`
	Source string           `json:"source"`
}

// #endregion advice

// #region snapshot
// Snapshot is the table the service answers from. It is never mutated after
// it is published.
type Snapshot struct {
	VersionID string
	Origin    string // "store" or "file"
	LoadedAt  time.Time
	table     *qtable.Table
}

// #endregion snapshot
