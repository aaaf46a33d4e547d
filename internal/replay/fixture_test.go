package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_ClearDecisions trains per the fixture and checks every case.
// If the environment, update rule or schedule drifts, this catches it.
func TestFixture_ClearDecisions(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "clear_decisions.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(f.Cases) == 0 {
		t.Fatal("fixture has no cases")
	}

	results, err := RunFixture(context.Background(), f)
	if err != nil {
		t.Fatalf("RunFixture: %v", err)
	}
	if len(results) != len(f.Cases) {
		t.Fatalf("expected %d results, got %d", len(f.Cases), len(results))
	}
	for i, r := range results {
		if !r.Pass {
			t.Errorf("case %d (%d,%d,%d): expected %s/%s, got %s/%s (q=%+v)",
				i, r.Case.PlayerTotal, r.Case.UsableAce, r.Case.DealerUpcard,
				r.Case.ExpectedAdvice, r.Case.ExpectedSource, r.Advice.Advice, r.Advice.Source, r.Advice.Q)
		}
	}
}

func TestFixtureConfigDefaults(t *testing.T) {
	fc := FixtureConfig{Rounds: 10, Seed: 3, Gamma: 0.5}
	cfg := fc.ToTrainConfig()
	if cfg.Rounds != 10 || cfg.Seed != 3 || cfg.Gamma != 0.5 {
		t.Fatalf("explicit fields not applied: %+v", cfg)
	}
	if cfg.Alpha != 0.1 || cfg.EpsStart != 1.0 || cfg.EpsEnd != 0.05 || cfg.VisitStep != 50 {
		t.Fatalf("zero fields should take defaults: %+v", cfg)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunFixture_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &Fixture{Config: FixtureConfig{Rounds: 10}}
	if _, err := RunFixture(ctx, f); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// #endregion fixture-tests
