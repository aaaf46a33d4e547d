package train

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// ErrInvalidConfig is wrapped by every schedule validation failure.
var ErrInvalidConfig = errors.New("invalid training config")

// #region config
// Config holds the learning schedule for one training run.
type Config struct {
	Rounds      int     `json:"rounds"`
	Alpha       float64 `json:"alpha"`        // base learning rate
	Gamma       float64 `json:"gamma"`        // discount on the bootstrapped term
	EpsStart    float64 `json:"eps_start"`    // exploration rate at round 0
	EpsEnd      float64 `json:"eps_end"`      // asymptote of the exploration decay
	VisitStep   int     `json:"visit_step"`   // visits per learning-rate step
	Seed        int64   `json:"seed"`
	CurveWindow int     `json:"curve_window"` // rounds per learning-curve point (0 = no curve)
}

// DefaultConfig returns the schedule the advisor ships with.
func DefaultConfig() Config {
	return Config{
		Rounds:      1_000_000,
		Alpha:       0.1,
		Gamma:       0.99,
		EpsStart:    1.0,
		EpsEnd:      0.05,
		VisitStep:   50,
		Seed:        0,
		CurveWindow: 10_000,
	}
}

// Validate checks the schedule. Out-of-range rates make the update diverge
// to non-finite values.
func (c Config) Validate() error {
	switch {
	case c.Rounds < 0:
		return fmt.Errorf("%w: negative rounds %d", ErrInvalidConfig, c.Rounds)
	case !(c.Alpha > 0 && c.Alpha <= 1):
		return fmt.Errorf("%w: alpha %v outside (0, 1]", ErrInvalidConfig, c.Alpha)
	case !(c.Gamma >= 0 && c.Gamma <= 1):
		return fmt.Errorf("%w: gamma %v outside [0, 1]", ErrInvalidConfig, c.Gamma)
	case !(c.EpsEnd >= 0 && c.EpsEnd <= c.EpsStart && c.EpsStart <= 1):
		return fmt.Errorf("%w: need 0 <= eps_end (%v) <= eps_start (%v) <= 1", ErrInvalidConfig, c.EpsEnd, c.EpsStart)
	case c.VisitStep < 0:
		return fmt.Errorf("%w: negative visit_step %d", ErrInvalidConfig, c.VisitStep)
	case c.CurveWindow < 0:
		return fmt.Errorf("%w: negative curve_window %d", ErrInvalidConfig, c.CurveWindow)
	}
	return nil
}

// #endregion config

// #region metrics
// CurvePoint is the mean behaviour-policy reward over one window of rounds.
type CurvePoint struct {
	Round     int     `json:"round"`
	AvgReward float64 `json:"avg_reward"`
	Epsilon   float64 `json:"epsilon"`
}

// Metrics captures telemetry from a training run. Outcomes are those of the
// exploring behaviour policy, not the greedy policy.
type Metrics struct {
	Rounds       int          `json:"rounds"`
	Transitions  int          `json:"transitions"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
	Pushes       int          `json:"pushes"`
	FinalEpsilon float64      `json:"final_epsilon"`
	VisitedPairs int          `json:"visited_pairs"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	Curve        []CurvePoint `json:"curve,omitempty"`
}

// #endregion metrics

// #region result
// Result bundles the trained table and its metrics.
type Result struct {
	Table   *qtable.Table
	Metrics Metrics
}

// #endregion result
