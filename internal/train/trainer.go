package train

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// #region options
// Option customises a training run.
type Option func(*options)

type options struct {
	progress      func(done int)
	progressEvery int
}

// WithProgress calls fn with the number of finished rounds every `every`
// rounds, and at the end when the last round is not on that boundary.
func WithProgress(every int, fn func(done int)) Option {
	return func(o *options) {
		o.progress = fn
		o.progressEvery = every
	}
}

// #endregion options

type visitKey struct {
	state  blackjack.State
	action blackjack.Action
}

// #region train
// Train runs cfg.Rounds simulated rounds with an epsilon-greedy behaviour
// policy and returns the learned table. One generator seeded from cfg.Seed
// drives both the deck and exploration, so equal configs give bit-identical
// tables. ctx is checked between rounds; a cancelled run returns no table.
func Train(ctx context.Context, cfg Config, opts ...Option) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("train: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(cfg.Seed))
	env := blackjack.NewEnv(blackjack.NewDeck(rng))
	table := qtable.New()
	visits := make(map[visitKey]int)

	var m Metrics
	var windowSum float64
	var windowN int

	for i := 0; i < cfg.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("train: stopped at round %d: %w", i, err)
		}

		eps := Epsilon(cfg, i)
		round := env.Deal()
		var reward int
		for !round.Done {
			s := round.State
			q := table.Ref(s)
			if q == nil {
				return Result{}, fmt.Errorf("train: state %v outside table", s)
			}

			a := choose(rng, q, eps)
			out := env.Step(round, a)

			key := visitKey{s, a}
			rate := LearningRate(cfg.Alpha, visits[key], cfg.VisitStep)
			var next *qtable.Values
			if !out.Done {
				next = table.Ref(out.Next)
			}
			Update(q, a, float64(out.Reward), next, rate, cfg.Gamma)
			visits[key]++
			m.Transitions++
			reward = out.Reward
		}

		switch reward {
		case blackjack.RewardWin:
			m.Wins++
		case blackjack.RewardLoss:
			m.Losses++
		default:
			m.Pushes++
		}

		if cfg.CurveWindow > 0 {
			windowSum += float64(reward)
			windowN++
			if windowN == cfg.CurveWindow || i == cfg.Rounds-1 {
				m.Curve = append(m.Curve, CurvePoint{
					Round:     i + 1,
					AvgReward: windowSum / float64(windowN),
					Epsilon:   eps,
				})
				windowSum, windowN = 0, 0
			}
		}

		if o.progress != nil && o.progressEvery > 0 && (i+1)%o.progressEvery == 0 {
			o.progress(i + 1)
		}
	}

	if o.progress != nil && (o.progressEvery <= 0 || cfg.Rounds%o.progressEvery != 0) {
		o.progress(cfg.Rounds)
	}

	m.Rounds = cfg.Rounds
	if cfg.Rounds > 0 {
		m.FinalEpsilon = Epsilon(cfg, cfg.Rounds-1)
	} else {
		m.FinalEpsilon = cfg.EpsStart
	}
	m.VisitedPairs = len(visits)
	m.ElapsedMs = time.Since(start).Milliseconds()

	return Result{Table: table, Metrics: m}, nil
}

// #endregion train

// choose draws the explore coin first and the random action second.
func choose(rng *rand.Rand, q *qtable.Values, eps float64) blackjack.Action {
	if rng.Float64() < eps {
		return blackjack.Actions[rng.Intn(blackjack.NumActions)]
	}
	return q.Best()
}
