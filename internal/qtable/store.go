package qtable

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoActive is returned when no version has been activated yet.
var ErrNoActive = errors.New("qtable: no active table")

// ErrNonFinite is returned when saving a table that holds NaN or Inf values.
var ErrNonFinite = errors.New("qtable: table holds non-finite values")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS table_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	rounds        INTEGER NOT NULL,
	seed          INTEGER NOT NULL,
	config_json   TEXT,
	metrics_json  TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES table_versions(version_id)
);

CREATE TABLE IF NOT EXISTS q_values (
	version_id     TEXT NOT NULL,
	player_total   INTEGER NOT NULL,
	usable_ace     INTEGER NOT NULL,
	dealer_upcard  INTEGER NOT NULL,
	hit            REAL NOT NULL,
	stand          REAL NOT NULL,
	PRIMARY KEY (version_id, player_total, usable_ace, dealer_upcard),
	FOREIGN KEY (version_id) REFERENCES table_versions(version_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT, -- NULL when the run left no storable table
	run_id        TEXT,
	trigger_type  TEXT NOT NULL,
	record_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES table_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_table (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES table_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps versioned Q-tables in SQLite with a single active pointer.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region save
// SaveVersion inserts a version and its values without touching the active
// pointer. An empty VersionID is replaced with a new UUID; the stored record
// is returned.
func (s *Store) SaveVersion(rec Record) (Record, error) {
	return s.insert(rec, false)
}

// CommitTable inserts a version and makes it active atomically.
func (s *Store) CommitTable(rec Record) (Record, error) {
	return s.insert(rec, true)
}

func (s *Store) insert(rec Record, activate bool) (Record, error) {
	if rec.Table == nil {
		return Record{}, fmt.Errorf("insert version: nil table")
	}
	if !rec.Table.Finite() {
		return Record{}, fmt.Errorf("insert version: %w", ErrNonFinite)
	}
	if rec.VersionID == "" {
		rec.VersionID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO table_versions (version_id, parent_id, rounds, seed, config_json, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), rec.Rounds, rec.Seed,
		nullIfEmpty(rec.ConfigJSON), nullIfEmpty(rec.MetricsJSON),
		rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert version: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO q_values (version_id, player_total, usable_ace, dealer_upcard, hit, stand)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return Record{}, fmt.Errorf("prepare values: %w", err)
	}
	defer stmt.Close()

	for _, st := range rec.Table.States() {
		v := rec.Table.entries[st]
		if _, err := stmt.Exec(rec.VersionID, st.PlayerTotal, st.UsableAce, st.DealerUpcard,
			v[blackjack.Hit], v[blackjack.Stand]); err != nil {
			return Record{}, fmt.Errorf("insert values %v: %w", st, err)
		}
	}

	if activate {
		_, err = tx.Exec(
			`INSERT INTO active_table (id, version_id) VALUES (1, ?)
			 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
			rec.VersionID,
		)
		if err != nil {
			return Record{}, fmt.Errorf("set active: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get-current
// ActiveVersionID returns the active version, or ErrNoActive.
func (s *Store) ActiveVersionID() (string, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_table WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoActive
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return versionID, nil
}

// GetCurrent reads the active version with its table.
func (s *Store) GetCurrent() (Record, error) {
	id, err := s.ActiveVersionID()
	if err != nil {
		return Record{}, err
	}
	return s.GetVersion(id)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a version and its full table.
func (s *Store) GetVersion(id string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(
		`SELECT version_id, parent_id, rounds, seed, config_json, metrics_json, created_at
		 FROM table_versions WHERE version_id = ?`, id,
	))
	if err != nil {
		return Record{}, fmt.Errorf("get version %s: %w", id, err)
	}

	rows, err := s.db.Query(
		`SELECT player_total, usable_ace, dealer_upcard, hit, stand
		 FROM q_values WHERE version_id = ?`, id,
	)
	if err != nil {
		return Record{}, fmt.Errorf("query values %s: %w", id, err)
	}
	defer rows.Close()

	t := &Table{entries: make(map[blackjack.State]*Values, Size)}
	for rows.Next() {
		var st blackjack.State
		var v Values
		if err := rows.Scan(&st.PlayerTotal, &st.UsableAce, &st.DealerUpcard, &v[blackjack.Hit], &v[blackjack.Stand]); err != nil {
			return Record{}, fmt.Errorf("scan values: %w", err)
		}
		t.entries[st] = &v
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate values: %w", err)
	}
	rec.Table = t
	return rec, nil
}

// #endregion get-version

// #region activate
// Activate points the active table at an existing version (rollback or promote).
func (s *Store) Activate(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM table_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_table (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// #endregion activate

// #region list-versions
// ListVersions returns the most recent versions without their tables.
func (s *Store) ListVersions(limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, rounds, seed, config_json, metrics_json, created_at
		 FROM table_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListVersionsWithProvenance joins each version with its most recent
// provenance row and the active flag. RecordJSON is the newest non-empty
// record for the version, so a later activation does not hide it.
func (s *Store) ListVersionsWithProvenance(limit int) ([]VersionWithProvenance, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.parent_id, v.rounds, v.seed, v.config_json, v.metrics_json, v.created_at,
		        a.version_id IS NOT NULL,
		        COALESCE(p.trigger_type, ''), COALESCE(p.decision, ''), COALESCE(p.reason, ''),
		        COALESCE((SELECT r.record_json FROM provenance_log r
		                  WHERE r.version_id = v.version_id AND r.record_json IS NOT NULL
		                  ORDER BY r.id DESC LIMIT 1), '')
		 FROM table_versions v
		 LEFT JOIN active_table a ON a.version_id = v.version_id
		 LEFT JOIN provenance_log p ON p.id = (
		     SELECT MAX(id) FROM provenance_log WHERE version_id = v.version_id
		 )
		 ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions with provenance: %w", err)
	}
	defer rows.Close()

	var out []VersionWithProvenance
	for rows.Next() {
		var vp VersionWithProvenance
		var parentID, configJSON, metricsJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&vp.VersionID, &parentID, &vp.Rounds, &vp.Seed, &configJSON, &metricsJSON, &createdStr,
			&vp.Active, &vp.TriggerType, &vp.Decision, &vp.Reason, &vp.RecordJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		vp.ParentID = parentID.String
		vp.ConfigJSON = configJSON.String
		vp.MetricsJSON = metricsJSON.String
		vp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, vp)
	}
	return out, rows.Err()
}

// #endregion list-versions

// #region helpers
// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var parentID, configJSON, metricsJSON sql.NullString
	var createdStr string
	if err := row.Scan(&rec.VersionID, &parentID, &rec.Rounds, &rec.Seed, &configJSON, &metricsJSON, &createdStr); err != nil {
		return Record{}, err
	}
	rec.ParentID = parentID.String
	rec.ConfigJSON = configJSON.String
	rec.MetricsJSON = metricsJSON.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
