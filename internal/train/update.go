package train

import (
	"math"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// #region schedule
// Epsilon is the exploration rate for round i. It decays exponentially
// toward EpsEnd and does not reach it by the last round.
func Epsilon(cfg Config, i int) float64 {
	if cfg.Rounds <= 0 {
		return cfg.EpsStart
	}
	return cfg.EpsEnd + (cfg.EpsStart-cfg.EpsEnd)*math.Exp(-4*float64(i)/float64(cfg.Rounds))
}

// LearningRate scales alpha down one step for every `step` prior visits.
// visits is the count before the current visit is recorded.
func LearningRate(alpha float64, visits, step int) float64 {
	if step <= 0 {
		return alpha
	}
	return alpha / float64(1+visits/step)
}

// #endregion schedule

// #region update-function
// Update applies one tabular step to q[a]. A nil next marks a terminal
// transition; otherwise the target bootstraps from next's best value.
func Update(q *qtable.Values, a blackjack.Action, reward float64, next *qtable.Values, rate, gamma float64) {
	target := reward
	if next != nil {
		target += gamma * next.Max()
	}
	q[a] += rate * (target - q[a])
}

// #endregion update-function
