package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to advisor.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	limit := flag.Int("last", 20, "number of recent versions to verify (DB mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/advisor.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(ctx, os.Stdout, *fixturePath)
	} else {
		exitCode = runDBMode(ctx, os.Stdout, *dbPath, *limit)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode retrains every recent version from its recorded seed and
// reports any table that does not reproduce exactly.
func runDBMode(ctx context.Context, w io.Writer, dbPath string, limit int) int {
	store, err := qtable.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	results, err := replay.VerifyStore(ctx, store, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 2
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no table versions found")
		return 2
	}

	fmt.Fprintf(w, "%-10s| %-10s| %-9s| %s\n", "Version", "Run", "Result", "Detail")
	fmt.Fprintf(w, "%-10s+%-11s+%-10s+%s\n", "----------", "-----------", "----------", "------")
	for _, r := range results {
		fmt.Fprintf(w, "%-10s| %-10s| %-9s| %s\n", shortID(r.VersionID), shortID(r.RunID), r.Action, r.Reason)
	}

	s := replay.Summarize(results)
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d mismatch, %d skipped\n",
		s.Total, s.Matches, s.Mismatches, s.Skipped)
	if s.Mismatches > 0 {
		return 1
	}
	return 0
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(ctx context.Context, w io.Writer, path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results, err := replay.RunFixture(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run fixture: %v\n", err)
		return 2
	}

	if f.Description != "" {
		fmt.Fprintf(w, "%s\n\n", f.Description)
	}
	fmt.Fprintf(w, "%-12s| %-9s| %-9s| %-9s| %s\n", "State", "Expected", "Advice", "Source", "Match")
	fmt.Fprintf(w, "%-12s+%-10s+%-10s+%-10s+%s\n",
		"------------", "----------", "----------", "----------", "------")

	matches := 0
	for _, r := range results {
		match := "DIFF"
		if r.Pass {
			match = "OK"
			matches++
		}
		st := r.Advice.State
		fmt.Fprintf(w, "%-12s| %-9s| %-9s| %-9s| %s\n",
			fmt.Sprintf("%d/%d/%d", st[0], st[1], st[2]),
			r.Case.ExpectedAdvice, r.Advice.Advice, r.Advice.Source, match)
	}

	diverge := len(results) - matches
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d diverge\n", len(results), matches, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion fixture-mode

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
