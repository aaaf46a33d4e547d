package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/chart"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to advisor.db")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.String("version", "", "show single version detail (full id or unique prefix)")
	grid := flag.Bool("grid", false, "with --version, print the hard and soft strategy grids")
	activate := flag.String("activate", "", "make this version active (promote or roll back)")
	export := flag.String("export", "", "write --version (or the active version) to this table file")
	importPath := flag.String("import", "", "store a table file as a new version")
	commit := flag.Bool("commit", false, "with --import, also activate the imported version")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	color := flag.Bool("color", isatty.IsTerminal(os.Stdout.Fd()), "colorize strategy grids")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/advisor.db [--last N] [--version id [--grid]] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --db path/to/advisor.db --activate id")
		fmt.Fprintln(os.Stderr, "       inspect --db path/to/advisor.db --export q_table.qtb [--version id]")
		fmt.Fprintln(os.Stderr, "       inspect --db path/to/advisor.db --import q_table.qtb [--commit]")
		os.Exit(2)
	}

	store, err := qtable.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	w := os.Stdout
	switch {
	case *activate != "":
		err = runActivate(w, store, *activate)
	case *importPath != "":
		err = runImport(w, store, *importPath, *commit)
	case *export != "":
		err = runExport(w, store, *version, *export)
	case *version != "":
		err = runDetailMode(w, store, *version, *grid, *color, *jsonOut)
	default:
		err = runListMode(w, store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID string   `json:"version_id"`
	Active    bool     `json:"active"`
	Rounds    int      `json:"rounds"`
	Seed      int64    `json:"seed"`
	Edge      *float64 `json:"edge,omitempty"`
	Trigger   string   `json:"trigger"`
	Decision  string   `json:"decision"`
	Reason    string   `json:"reason,omitempty"`
	CreatedAt string   `json:"created_at"`

	created time.Time
}

func runListMode(w io.Writer, store *qtable.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersionsWithProvenance(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	// Store returns newest first; print chronologically.
	rows := make([]listRow, len(versions))
	for i, vp := range versions {
		lr := listRow{
			VersionID: vp.VersionID,
			Active:    vp.Active,
			Rounds:    vp.Rounds,
			Seed:      vp.Seed,
			Trigger:   vp.TriggerType,
			Decision:  vp.Decision,
			Reason:    vp.Reason,
			CreatedAt: vp.CreatedAt.Format(time.RFC3339),
			created:   vp.CreatedAt,
		}
		if tr := parseTrainRecord(vp.RecordJSON); tr != nil {
			edge := tr.Greedy.Edge
			lr.Edge = &edge
		}
		rows[len(versions)-1-i] = lr
	}

	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-10s  %-1s  %12s  %8s  %-9s  %-8s  %s\n",
		"Version", "", "Rounds", "Edge", "Trigger", "Decision", "Created")
	fmt.Fprintf(w, "%-10s+-%-1s+-%12s+-%8s+-%-9s+-%-8s+-%s\n",
		"----------", "-", "------------", "--------", "---------", "--------", "--------------")
	for _, r := range rows {
		active := ""
		if r.Active {
			active = "*"
		}
		edge := "-"
		if r.Edge != nil {
			edge = fmt.Sprintf("%+.4f", *r.Edge)
		}
		fmt.Fprintf(w, "%-10s  %-1s  %12s  %8s  %-9s  %-8s  %s\n",
			shortID(r.VersionID), active, humanize.Comma(int64(r.Rounds)), edge,
			dash(r.Trigger), dash(r.Decision), humanize.Time(r.created))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID string                    `json:"version_id"`
	ParentID  string                    `json:"parent_id,omitempty"`
	Active    bool                      `json:"active"`
	CreatedAt string                    `json:"created_at"`
	Rounds    int                       `json:"rounds"`
	Seed      int64                     `json:"seed"`
	Metrics   *train.Metrics            `json:"metrics,omitempty"`
	Record    *logging.TrainRecord      `json:"train_record,omitempty"`
	History   []logging.ProvenanceEntry `json:"history"`
}

func runDetailMode(w io.Writer, store *qtable.Store, id string, grid, color, jsonOut bool) error {
	versionID, err := resolveID(store, id)
	if err != nil {
		return err
	}
	rec, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	history, err := logging.History(store.DB(), versionID)
	if err != nil {
		return err
	}
	activeID, err := store.ActiveVersionID()
	if err != nil && !errors.Is(err, qtable.ErrNoActive) {
		return err
	}

	out := detailOutput{
		VersionID: rec.VersionID,
		ParentID:  rec.ParentID,
		Active:    activeID == rec.VersionID,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		Rounds:    rec.Rounds,
		Seed:      rec.Seed,
		History:   history,
	}
	if rec.MetricsJSON != "" {
		var m train.Metrics
		if err := json.Unmarshal([]byte(rec.MetricsJSON), &m); err == nil {
			out.Metrics = &m
		}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if tr := parseTrainRecord(history[i].RecordJSON); tr != nil {
			out.Record = tr
			break
		}
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Version:    %s\n", out.VersionID)
	fmt.Fprintf(w, "Parent:     %s\n", dash(out.ParentID))
	fmt.Fprintf(w, "Active:     %v\n", out.Active)
	fmt.Fprintf(w, "Created:    %s (%s)\n", out.CreatedAt, humanize.Time(rec.CreatedAt))
	fmt.Fprintf(w, "Rounds:     %s\n", humanize.Comma(int64(out.Rounds)))
	fmt.Fprintf(w, "Seed:       %d\n", out.Seed)

	if m := out.Metrics; m != nil {
		fmt.Fprintf(w, "\nTraining:\n")
		fmt.Fprintf(w, "  Transitions:  %s\n", humanize.Comma(int64(m.Transitions)))
		fmt.Fprintf(w, "  W/L/P:        %d/%d/%d\n", m.Wins, m.Losses, m.Pushes)
		fmt.Fprintf(w, "  Visited:      %d/%d pairs\n", m.VisitedPairs, 2*qtable.Size)
		fmt.Fprintf(w, "  Final eps:    %.4f\n", m.FinalEpsilon)
		fmt.Fprintf(w, "  Elapsed:      %s\n", time.Duration(m.ElapsedMs)*time.Millisecond)
	}

	if tr := out.Record; tr != nil {
		fmt.Fprintf(w, "\nGate Record:\n")
		fmt.Fprintf(w, "  Run:          %s\n", tr.RunID)
		fmt.Fprintf(w, "  Greedy edge:  %+.4f\n", tr.Greedy.Edge)
		fmt.Fprintf(w, "  Random edge:  %+.4f\n", tr.Random.Edge)
		if tr.Incumbent != nil {
			fmt.Fprintf(w, "  Active edge:  %+.4f\n", tr.Incumbent.Edge)
		}
		fmt.Fprintf(w, "  Vetoed:       %v\n", tr.GateVetoed)
		fmt.Fprintf(w, "  Soft Score:   %.4f\n", tr.GateSoftScore)
		fmt.Fprintf(w, "  Decision:     %s (%s)\n", tr.GateAction, tr.GateReason)
	}

	fmt.Fprintf(w, "\nHistory:\n")
	for _, e := range history {
		fmt.Fprintf(w, "  %s  %-9s  %-8s  %s\n",
			e.CreatedAt.Format(time.RFC3339), e.TriggerType, e.Decision, e.Reason)
	}

	if grid {
		fmt.Fprintln(w)
		if err := chart.PrintStrategy(w, rec.Table, 0, color); err != nil {
			return err
		}
		fmt.Fprintln(w)
		if err := chart.PrintStrategy(w, rec.Table, 1, color); err != nil {
			return err
		}
	}
	return nil
}

// #endregion detail-mode

// #region manage

func runActivate(w io.Writer, store *qtable.Store, id string) error {
	versionID, err := resolveID(store, id)
	if err != nil {
		return err
	}
	prev, err := store.ActiveVersionID()
	if err != nil && !errors.Is(err, qtable.ErrNoActive) {
		return err
	}
	if err := store.Activate(versionID); err != nil {
		return err
	}
	reason := "manual activation"
	if prev != "" {
		reason = fmt.Sprintf("manual activation, replaces %s", shortID(prev))
	}
	if err := logging.LogDecision(store.DB(), logging.ProvenanceEntry{
		VersionID:   versionID,
		TriggerType: logging.TriggerActivate,
		Decision:    "commit",
		Reason:      reason,
	}); err != nil {
		return err
	}
	fmt.Fprintf(w, "active: %s\n", versionID)
	return nil
}

func runImport(w io.Writer, store *qtable.Store, path string, commit bool) error {
	t, err := qtable.ReadFile(path)
	if err != nil {
		return err
	}
	if !t.Finite() {
		return fmt.Errorf("import %s: table holds non-finite values", path)
	}
	if missing := t.Missing(); len(missing) > 0 {
		return fmt.Errorf("import %s: table lacks %d of %d states, first %v",
			path, len(missing), qtable.Size, missing[0])
	}

	parentID, err := store.ActiveVersionID()
	if err != nil && !errors.Is(err, qtable.ErrNoActive) {
		return err
	}
	rec := qtable.Record{ParentID: parentID, Table: t}

	decision := "saved"
	if commit {
		rec, err = store.CommitTable(rec)
		decision = "commit"
	} else {
		rec, err = store.SaveVersion(rec)
	}
	if err != nil {
		return err
	}
	if err := logging.LogDecision(store.DB(), logging.ProvenanceEntry{
		VersionID:   rec.VersionID,
		TriggerType: logging.TriggerImport,
		Decision:    decision,
		Reason:      "imported from " + path,
	}); err != nil {
		return err
	}
	fmt.Fprintf(w, "imported: %s (%s)\n", rec.VersionID, decision)
	return nil
}

func runExport(w io.Writer, store *qtable.Store, id, path string) error {
	var rec qtable.Record
	var err error
	if id == "" {
		rec, err = store.GetCurrent()
	} else {
		var versionID string
		if versionID, err = resolveID(store, id); err == nil {
			rec, err = store.GetVersion(versionID)
		}
	}
	if err != nil {
		return err
	}
	if err := qtable.WriteFile(path, rec.Table); err != nil {
		return err
	}
	size := int64(0)
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	fmt.Fprintf(w, "exported: %s -> %s (%s)\n", rec.VersionID, path, humanize.Bytes(uint64(size)))
	return nil
}

// resolveID accepts a full version id or a unique prefix of one.
func resolveID(store *qtable.Store, id string) (string, error) {
	versions, err := store.ListVersions(-1)
	if err != nil {
		return "", err
	}
	var match string
	for _, v := range versions {
		if v.VersionID == id {
			return id, nil
		}
		if strings.HasPrefix(v.VersionID, id) {
			if match != "" {
				return "", fmt.Errorf("version prefix %q is ambiguous", id)
			}
			match = v.VersionID
		}
	}
	if match == "" {
		return "", fmt.Errorf("version %s not found", id)
	}
	return match, nil
}

// #endregion manage

// #region output

func parseTrainRecord(recordJSON string) *logging.TrainRecord {
	if recordJSON == "" {
		return nil
	}
	var tr logging.TrainRecord
	if err := json.Unmarshal([]byte(recordJSON), &tr); err == nil && tr.RunID != "" {
		return &tr
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
