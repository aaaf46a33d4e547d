package report

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// DB mirrors training runs into Postgres for dashboards. SQLite stays the
// source of truth for tables; this is write-mostly reporting.
type DB struct{ *pgxpool.Pool }

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	return &DB{p}, nil
}

func (db *DB) Close()                         { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrate report db: %w", err)
	}
	return nil
}

// RunSummary is one training run as reported.
type RunSummary struct {
	RunID         string
	VersionID     string
	Decision      string
	Reason        string
	Rounds        int
	Seed          int64
	Alpha         float64
	Gamma         float64
	EpsStart      float64
	EpsEnd        float64
	VisitedPairs  int
	ElapsedMs     int64
	GreedyEdge    float64
	GreedyWinRate float64
	RandomEdge    float64
	SoftScore     float64
	CreatedAt     time.Time
}

// SummaryFromRecord flattens a train record into a report row.
func SummaryFromRecord(versionID string, r logging.TrainRecord) RunSummary {
	win, _ := r.Greedy.Metric("win_rate")
	return RunSummary{
		RunID:         r.RunID,
		VersionID:     versionID,
		Decision:      r.GateAction,
		Reason:        r.GateReason,
		Rounds:        r.Config.Rounds,
		Seed:          r.Config.Seed,
		Alpha:         r.Config.Alpha,
		Gamma:         r.Config.Gamma,
		EpsStart:      r.Config.EpsStart,
		EpsEnd:        r.Config.EpsEnd,
		VisitedPairs:  r.Metrics.VisitedPairs,
		ElapsedMs:     r.Metrics.ElapsedMs,
		GreedyEdge:    r.Greedy.Edge,
		GreedyWinRate: win,
		RandomEdge:    r.Random.Edge,
		SoftScore:     r.GateSoftScore,
	}
}

/* -----------------------------
   Write helpers
------------------------------*/

// InsertRun stores a run and its learning curve in one transaction.
func (db *DB) InsertRun(ctx context.Context, s RunSummary, curve []CurveRow) (int64, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO training_runs(run_id, version_id, decision, reason, rounds, seed, alpha, gamma,
		                          eps_start, eps_end, visited_pairs, elapsed_ms, greedy_edge,
		                          greedy_win_rate, random_edge, soft_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id
	`, s.RunID, s.VersionID, s.Decision, s.Reason, s.Rounds, s.Seed, s.Alpha, s.Gamma,
		s.EpsStart, s.EpsEnd, s.VisitedPairs, s.ElapsedMs, s.GreedyEdge,
		s.GreedyWinRate, s.RandomEdge, s.SoftScore).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	if len(curve) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"training_curve"},
			[]string{"run_id", "round", "avg_reward", "epsilon"},
			pgx.CopyFromSlice(len(curve), func(i int) ([]any, error) {
				c := curve[i]
				return []any{s.RunID, c.Round, c.AvgReward, c.Epsilon}, nil
			}),
		)
		if err != nil {
			return 0, fmt.Errorf("copy curve: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// CurveRow is one learning-curve point.
type CurveRow struct {
	Round     int
	AvgReward float64
	Epsilon   float64
}

/* -----------------------------
   Read helpers
------------------------------*/

// RecentRuns returns the newest runs first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT run_id, version_id, decision, COALESCE(reason, ''), rounds, seed, alpha, gamma,
		       eps_start, eps_end, visited_pairs, elapsed_ms, greedy_edge, greedy_win_rate,
		       random_edge, soft_score, created_at
		  FROM training_runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var s RunSummary
		err := row.Scan(&s.RunID, &s.VersionID, &s.Decision, &s.Reason, &s.Rounds, &s.Seed, &s.Alpha, &s.Gamma,
			&s.EpsStart, &s.EpsEnd, &s.VisitedPairs, &s.ElapsedMs, &s.GreedyEdge, &s.GreedyWinRate,
			&s.RandomEdge, &s.SoftScore, &s.CreatedAt)
		return s, err
	})
}

// Curve returns a run's learning curve in round order.
func (db *DB) Curve(ctx context.Context, runID string) ([]CurveRow, error) {
	rows, err := db.Query(ctx, `
		SELECT round, avg_reward, epsilon FROM training_curve WHERE run_id = $1 ORDER BY round
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query curve: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[CurveRow])
}
