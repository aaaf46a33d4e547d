package gate

import (
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/eval"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
)

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoEvalFailed     VetoType = "eval_failed"
	VetoNonFinite      VetoType = "non_finite"
	VetoUndertrained   VetoType = "undertrained"
	VetoEdgeRegression VetoType = "edge_regression"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds thresholds for promotion decisions.
type GateConfig struct {
	MinRounds         int     `json:"min_rounds"`          // reject runs shorter than this
	MaxEdgeRegression float64 `json:"max_edge_regression"` // allowed edge drop versus the active table
}

// DefaultGateConfig returns the thresholds used by cmd/train.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinRounds:         10_000,
		MaxEdgeRegression: 0.02,
	}
}

// #endregion gate-config

// #region candidate
// Candidate is a freshly trained table with its training and evaluation results.
type Candidate struct {
	Table   *qtable.Table
	Metrics train.Metrics
	Eval    eval.EvalResult
}

// #endregion candidate

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string       `json:"action"` // "commit" | "reject"
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"veto_signals,omitempty"`
	SoftScore   float64      `json:"soft_score"` // 0-1 composite of soft signals (for logging)
}

// HasVeto reports whether the decision carries a veto of type t.
func (d GateDecision) HasVeto(t VetoType) bool {
	for _, v := range d.VetoSignals {
		if v.Type == t {
			return true
		}
	}
	return false
}

// #endregion gate-decision
