package eval

import (
	"fmt"
	"math/rand"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// #region policies
// Policy picks an action for a state.
type Policy interface {
	Name() string
	Choose(s blackjack.State) blackjack.Action
}

// GreedyPolicy plays the table's best action, or the advisory fallback for
// states the table does not hold.
type GreedyPolicy struct {
	Table *qtable.Table
}

func (p GreedyPolicy) Name() string { return "greedy" }

func (p GreedyPolicy) Choose(s blackjack.State) blackjack.Action {
	return advisor.Recommend(p.Table, s).Advice
}

// RandomPolicy hits or stands with equal probability.
type RandomPolicy struct {
	Rng *rand.Rand
}

func (p RandomPolicy) Name() string { return "random" }

func (p RandomPolicy) Choose(blackjack.State) blackjack.Action {
	if p.Rng.Float64() < 0.5 {
		return blackjack.Hit
	}
	return blackjack.Stand
}

// #endregion policies

// #region eval-harness
// EvalHarness plays a policy against a seeded environment.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run plays config.Rounds rounds with p. Each call deals from a fresh
// generator seeded with config.Seed, so two policies see the same shoe
// as long as neither draws from it.
func (h *EvalHarness) Run(p Policy) EvalResult {
	return h.run(p, blackjack.NewDeck(rand.New(rand.NewSource(h.config.Seed))))
}

// RunWithSource plays against an explicit card source.
func (h *EvalHarness) RunWithSource(p Policy, src blackjack.CardSource) EvalResult {
	return h.run(p, src)
}

func (h *EvalHarness) run(p Policy, src blackjack.CardSource) EvalResult {
	env := blackjack.NewEnv(src)
	res := EvalResult{Policy: p.Name(), Rounds: h.config.Rounds}

	for i := 0; i < h.config.Rounds; i++ {
		round := env.Deal()
		var out blackjack.Outcome
		for !round.Done {
			out = env.Step(round, p.Choose(round.State))
		}
		switch out.Reward {
		case blackjack.RewardWin:
			res.Wins++
		case blackjack.RewardLoss:
			res.Losses++
		default:
			res.Pushes++
		}
	}

	var winRate, lossRate, pushRate float64
	if res.Rounds > 0 {
		n := float64(res.Rounds)
		winRate = float64(res.Wins) / n
		lossRate = float64(res.Losses) / n
		pushRate = float64(res.Pushes) / n
	}
	res.Edge = winRate - lossRate

	edgePass := res.Edge >= h.config.MinEdge
	res.Metrics = []EvalMetric{
		{Name: "win_rate", Value: winRate, Pass: true},
		{Name: "loss_rate", Value: lossRate, Pass: true},
		{Name: "push_rate", Value: pushRate, Pass: true},
		{Name: "edge", Value: res.Edge, Pass: edgePass},
	}

	res.Passed = edgePass
	res.Reason = "all checks passed"
	if !edgePass {
		res.Reason = fmt.Sprintf("eval failed: edge %.4f below %.4f", res.Edge, h.config.MinEdge)
	}
	return res
}

// #endregion eval-harness

// Metric returns the named metric value, or false when absent.
func (r EvalResult) Metric(name string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
