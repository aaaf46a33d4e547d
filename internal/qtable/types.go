package qtable

import "time"

// #region record
// Record is one persisted table version.
type Record struct {
	VersionID   string
	ParentID    string
	Table       *Table
	Rounds      int
	Seed        int64
	ConfigJSON  string
	MetricsJSON string
	CreatedAt   time.Time
}

// #endregion record

// #region version-with-provenance
// VersionWithProvenance pairs a version's metadata with its latest provenance row.
// Table is left nil; load it with GetVersion when needed.
type VersionWithProvenance struct {
	Record
	Active      bool
	TriggerType string
	Decision    string
	Reason      string
	RecordJSON  string
}

// #endregion version-with-provenance
