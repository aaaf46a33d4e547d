package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
)

// #region fixture-types

// Fixture is the top-level JSON structure for an advice fixture: a training
// schedule and the answers the resulting table must give.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Cases       []FixtureCase `json:"cases"`
}

// FixtureConfig mirrors train.Config with JSON tags. Zero fields take the
// defaults.
type FixtureConfig struct {
	Rounds    int     `json:"rounds"`
	Seed      int64   `json:"seed"`
	Alpha     float64 `json:"alpha"`
	Gamma     float64 `json:"gamma"`
	EpsStart  float64 `json:"eps_start"`
	EpsEnd    float64 `json:"eps_end"`
	VisitStep int     `json:"visit_step"`
}

// FixtureCase is one advisory query with its expected answer.
type FixtureCase struct {
	PlayerTotal    int    `json:"player_total"`
	UsableAce      int    `json:"usable_ace"`
	DealerUpcard   int    `json:"dealer_upcard"`
	ExpectedAdvice string `json:"expected_advice"`
	ExpectedSource string `json:"expected_source"`
}

// CaseResult is the actual answer for one FixtureCase.
type CaseResult struct {
	Case   FixtureCase
	Advice advisor.Advice
	Pass   bool
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTrainConfig converts a FixtureConfig to a train.Config over the defaults.
func (fc *FixtureConfig) ToTrainConfig() train.Config {
	cfg := train.DefaultConfig()
	cfg.Rounds = fc.Rounds
	cfg.Seed = fc.Seed
	cfg.CurveWindow = 0
	if fc.Alpha != 0 {
		cfg.Alpha = fc.Alpha
	}
	if fc.Gamma != 0 {
		cfg.Gamma = fc.Gamma
	}
	if fc.EpsStart != 0 {
		cfg.EpsStart = fc.EpsStart
	}
	if fc.EpsEnd != 0 {
		cfg.EpsEnd = fc.EpsEnd
	}
	if fc.VisitStep != 0 {
		cfg.VisitStep = fc.VisitStep
	}
	return cfg
}

// ToRequest converts a case to an advisory request.
func (c FixtureCase) ToRequest() advisor.Request {
	return advisor.Request{
		PlayerTotal:  c.PlayerTotal,
		UsableAce:    c.UsableAce,
		DealerUpcard: c.DealerUpcard,
	}
}

// #endregion fixture-loader

// #region fixture-run

// RunFixture trains per the fixture config and answers every case.
func RunFixture(ctx context.Context, f *Fixture) ([]CaseResult, error) {
	out, err := train.Train(ctx, f.Config.ToTrainConfig())
	if err != nil {
		return nil, fmt.Errorf("run fixture: %w", err)
	}

	results := make([]CaseResult, 0, len(f.Cases))
	for _, c := range f.Cases {
		adv := advisor.Recommend(out.Table, c.ToRequest().State())
		pass := adv.Advice.String() == c.ExpectedAdvice
		if c.ExpectedSource != "" && adv.Source != c.ExpectedSource {
			pass = false
		}
		results = append(results, CaseResult{Case: c, Advice: adv, Pass: pass})
	}
	return results, nil
}

// #endregion fixture-run
