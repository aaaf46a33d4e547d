package replay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
)

// #region types
// VerifyResult is the outcome of retraining one stored version.
type VerifyResult struct {
	VersionID string
	RunID     string
	Action    string // "match" | "mismatch" | "skipped"
	Reason    string
	Diffs     []qtable.StateDiff
}

// VerifySummary provides aggregate stats from a verification pass.
type VerifySummary struct {
	Total      int
	Matches    int
	Mismatches int
	Skipped    int
}

// VersionLister is the part of the version store verification reads.
type VersionLister interface {
	ListVersionsWithProvenance(limit int) ([]qtable.VersionWithProvenance, error)
	GetVersion(id string) (qtable.Record, error)
}

// #endregion types

// #region verify
// VerifyRecord retrains from the recorded config and seed and compares the
// result against the stored table bit for bit.
func VerifyRecord(ctx context.Context, rec qtable.Record, tr logging.TrainRecord) (VerifyResult, error) {
	res := VerifyResult{VersionID: rec.VersionID, RunID: tr.RunID}
	if rec.Table == nil {
		return res, fmt.Errorf("verify %s: record has no table", rec.VersionID)
	}

	cfg := tr.Config
	cfg.CurveWindow = 0
	out, err := train.Train(ctx, cfg)
	if err != nil {
		return res, fmt.Errorf("verify %s: %w", rec.VersionID, err)
	}

	res.Diffs = qtable.Diff(rec.Table, out.Table)
	if len(res.Diffs) == 0 {
		res.Action = "match"
		res.Reason = fmt.Sprintf("%d states identical", rec.Table.Len())
		return res, nil
	}
	res.Action = "mismatch"
	res.Reason = fmt.Sprintf("%d states differ, first at %v", len(res.Diffs), res.Diffs[0].State)
	return res, nil
}

// VerifyStore verifies the most recent versions. Versions without a train
// record (imports) are reported as skipped.
func VerifyStore(ctx context.Context, store VersionLister, limit int) ([]VerifyResult, error) {
	versions, err := store.ListVersionsWithProvenance(limit)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	results := make([]VerifyResult, 0, len(versions))
	for _, v := range versions {
		if v.RecordJSON == "" {
			results = append(results, VerifyResult{
				VersionID: v.VersionID,
				Action:    "skipped",
				Reason:    fmt.Sprintf("no train record (trigger %q)", v.TriggerType),
			})
			continue
		}

		var tr logging.TrainRecord
		if err := json.Unmarshal([]byte(v.RecordJSON), &tr); err != nil {
			return results, fmt.Errorf("decode record %s: %w", v.VersionID, err)
		}
		rec, err := store.GetVersion(v.VersionID)
		if err != nil {
			return results, err
		}
		r, err := VerifyRecord(ctx, rec, tr)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Summarize computes aggregate stats from verification results.
func Summarize(results []VerifyResult) VerifySummary {
	s := VerifySummary{Total: len(results)}
	for _, r := range results {
		switch r.Action {
		case "match":
			s.Matches++
		case "mismatch":
			s.Mismatches++
		case "skipped":
			s.Skipped++
		}
	}
	return s
}

// #endregion verify
