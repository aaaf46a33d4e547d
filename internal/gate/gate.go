package gate

import (
	"fmt"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/eval"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// #region gate
// Gate decides whether a trained table replaces the active one.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes first, then scores soft signals. incumbent is
// the evaluation of the active table on the same shoe, or nil when nothing
// is active yet.
func (g *Gate) Evaluate(c Candidate, incumbent *eval.EvalResult) GateDecision {
	var vetoes []VetoSignal

	// --- Hard veto pass ---

	if c.Table == nil || !c.Table.Finite() {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoNonFinite,
			Reason: "table missing or holds non-finite values",
		})
	}

	if c.Metrics.Rounds < g.config.MinRounds {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoUndertrained,
			Reason: fmt.Sprintf("trained %d rounds, need %d", c.Metrics.Rounds, g.config.MinRounds),
		})
	}

	if !c.Eval.Passed {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoEvalFailed,
			Reason: c.Eval.Reason,
		})
	}

	if incumbent != nil && c.Eval.Edge < incumbent.Edge-g.config.MaxEdgeRegression {
		vetoes = append(vetoes, VetoSignal{
			Type: VetoEdgeRegression,
			Reason: fmt.Sprintf("edge %.4f regresses from active %.4f by more than %.4f",
				c.Eval.Edge, incumbent.Edge, g.config.MaxEdgeRegression),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	// --- Soft scoring ---
	softScore := computeSoftScore(c, incumbent)

	return GateDecision{
		Action:    "commit",
		Reason:    fmt.Sprintf("passed gate: soft_score=%.4f", softScore),
		SoftScore: softScore,
	}
}

// #endregion gate

// #region helpers
// computeSoftScore produces a 0-1 composite from the evaluated edge, state
// coverage and improvement over the active table. Logged, never blocking.
func computeSoftScore(c Candidate, incumbent *eval.EvalResult) float64 {
	var score float64

	// Edge component (weight 0.5): edge in [-1,1] mapped to [0,1].
	score += 0.5 * clamp01((c.Eval.Edge+1)/2)

	// Coverage component (weight 0.3): share of (state, action) pairs visited.
	pairs := float64(2 * qtable.Size)
	score += 0.3 * clamp01(float64(c.Metrics.VisitedPairs)/pairs)

	// Improvement component (weight 0.2).
	switch {
	case incumbent == nil:
		score += 0.1
	case c.Eval.Edge > incumbent.Edge:
		score += 0.2
	case c.Eval.Edge == incumbent.Edge:
		score += 0.1
	}

	return score
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
