package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/gate"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table. An empty
// VersionID records a run that produced no storable table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (version_id, run_id, trigger_type, record_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.VersionID),
		nullIfEmpty(entry.RunID),
		entry.TriggerType,
		nullIfEmpty(entry.RecordJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region history
// History returns the provenance rows for a version, oldest first.
func History(db *sql.DB, versionID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT id, version_id, COALESCE(run_id, ''), trigger_type, COALESCE(record_json, ''),
		        decision, COALESCE(reason, ''), created_at
		 FROM provenance_log WHERE version_id = ? ORDER BY id`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.VersionID, &e.RunID, &e.TriggerType, &e.RecordJSON,
			&e.Decision, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByRun returns the provenance rows logged by one training run, oldest first.
// VersionID is empty for runs whose table was not stored.
func ByRun(db *sql.DB, runID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT id, COALESCE(version_id, ''), COALESCE(run_id, ''), trigger_type, COALESCE(record_json, ''),
		        decision, COALESCE(reason, ''), created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.VersionID, &e.RunID, &e.TriggerType, &e.RecordJSON,
			&e.Decision, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestTrainRecord decodes the most recent train record logged for a version.
func LatestTrainRecord(db *sql.DB, versionID string) (TrainRecord, error) {
	var raw string
	err := db.QueryRow(
		`SELECT record_json FROM provenance_log
		 WHERE version_id = ? AND trigger_type = ? AND record_json IS NOT NULL
		 ORDER BY id DESC LIMIT 1`, versionID, TriggerTrain,
	).Scan(&raw)
	if err != nil {
		return TrainRecord{}, fmt.Errorf("latest train record %s: %w", versionID, err)
	}
	var rec TrainRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return TrainRecord{}, fmt.Errorf("decode train record %s: %w", versionID, err)
	}
	return rec, nil
}

// #endregion history

// #region build
// ApplyDecision copies the gate output into the record.
func (r *TrainRecord) ApplyDecision(d gate.GateDecision) {
	r.GateAction = d.Action
	r.GateSoftScore = d.SoftScore
	r.GateVetoed = d.Vetoed
	r.GateReason = d.Reason
}

// JSON encodes the record without the learning curve.
func (r TrainRecord) JSON() (string, error) {
	r.Metrics.Curve = nil
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode train record: %w", err)
	}
	return string(b), nil
}

// #endregion build

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
