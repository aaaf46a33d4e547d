package eval

// #region eval-config
// EvalConfig holds the evaluation run size and its pass threshold.
type EvalConfig struct {
	Rounds  int     `json:"rounds"`
	Seed    int64   `json:"seed"`
	MinEdge float64 `json:"min_edge"` // fail if (wins-losses)/rounds falls below this
}

// DefaultEvalConfig returns the evaluation used before promoting a table.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Rounds:  10_000,
		Seed:    1,
		MinEdge: -0.25,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single evaluation figure.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of playing one policy for a fixed number of rounds.
type EvalResult struct {
	Policy  string       `json:"policy"`
	Passed  bool         `json:"passed"`
	Rounds  int          `json:"rounds"`
	Wins    int          `json:"wins"`
	Losses  int          `json:"losses"`
	Pushes  int          `json:"pushes"`
	Edge    float64      `json:"edge"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
