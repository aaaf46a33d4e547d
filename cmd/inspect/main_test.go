package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

func tempStore(t *testing.T) *qtable.Store {
	t.Helper()
	s, err := qtable.NewStore(filepath.Join(t.TempDir(), "advisor.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportExportActivate(t *testing.T) {
	store := tempStore(t)
	dir := t.TempDir()

	tbl := qtable.New()
	tbl.Set(blackjack.State{PlayerTotal: 20, DealerUpcard: 10}, qtable.Values{-0.8, 0.4})
	src := filepath.Join(dir, "in.qtb")
	if err := qtable.WriteFile(src, tbl); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	if err := runImport(&out, store, src, false); err != nil {
		t.Fatalf("runImport: %v", err)
	}
	if _, err := store.GetCurrent(); err == nil {
		t.Fatal("import without --commit must not activate")
	}
	versions, err := store.ListVersions(10)
	if err != nil || len(versions) != 1 {
		t.Fatalf("expected one version, got %d (%v)", len(versions), err)
	}
	id := versions[0].VersionID

	if err := runActivate(&out, store, id[:8]); err != nil {
		t.Fatalf("runActivate by prefix: %v", err)
	}
	cur, err := store.GetCurrent()
	if err != nil || cur.VersionID != id {
		t.Fatalf("expected %s active, got %v (%v)", id, cur.VersionID, err)
	}
	history, err := logging.History(store.DB(), id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].TriggerType != logging.TriggerImport || history[1].TriggerType != logging.TriggerActivate {
		t.Fatalf("unexpected history %+v", history)
	}

	dst := filepath.Join(dir, "out.qtb")
	if err := runExport(&out, store, "", dst); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	got, err := qtable.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !got.Equal(tbl) {
		t.Fatal("exported table differs from imported table")
	}
}

func TestImportCommit(t *testing.T) {
	store := tempStore(t)
	src := filepath.Join(t.TempDir(), "in.qtb")
	if err := qtable.WriteFile(src, qtable.New()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runImport(&bytes.Buffer{}, store, src, true); err != nil {
		t.Fatalf("runImport: %v", err)
	}
	if _, err := store.GetCurrent(); err != nil {
		t.Fatalf("import with commit should activate: %v", err)
	}
}

func TestResolveID(t *testing.T) {
	store := tempStore(t)
	for _, id := range []string{"abc-1", "abc-2", "def-1"} {
		if _, err := store.SaveVersion(qtable.Record{VersionID: id, Table: qtable.New()}); err != nil {
			t.Fatalf("SaveVersion: %v", err)
		}
	}
	if got, err := resolveID(store, "def"); err != nil || got != "def-1" {
		t.Fatalf("expected def-1, got %q (%v)", got, err)
	}
	if got, err := resolveID(store, "abc-1"); err != nil || got != "abc-1" {
		t.Fatalf("exact id should resolve, got %q (%v)", got, err)
	}
	if _, err := resolveID(store, "abc"); err == nil {
		t.Fatal("expected ambiguity error")
	}
	if _, err := resolveID(store, "zzz"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestListAndDetail(t *testing.T) {
	store := tempStore(t)
	tr := logging.TrainRecord{RunID: "run-1"}
	tr.Greedy.Edge = -0.05
	raw, err := tr.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	rec, err := store.CommitTable(qtable.Record{Table: qtable.New(), Rounds: 12345, Seed: 7})
	if err != nil {
		t.Fatalf("CommitTable: %v", err)
	}
	if err := logging.LogDecision(store.DB(), logging.ProvenanceEntry{
		VersionID: rec.VersionID, RunID: "run-1", TriggerType: logging.TriggerTrain,
		RecordJSON: raw, Decision: "commit", Reason: "passed gate",
	}); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	var out bytes.Buffer
	if err := runListMode(&out, store, 10, false); err != nil {
		t.Fatalf("runListMode: %v", err)
	}
	if !strings.Contains(out.String(), "12,345") || !strings.Contains(out.String(), "-0.0500") {
		t.Fatalf("list output missing rounds or edge:\n%s", out.String())
	}

	out.Reset()
	if err := runListMode(&out, store, 10, true); err != nil {
		t.Fatalf("runListMode json: %v", err)
	}
	var rows []listRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode list json: %v", err)
	}
	if len(rows) != 1 || !rows[0].Active || rows[0].Edge == nil {
		t.Fatalf("unexpected rows %+v", rows)
	}

	out.Reset()
	if err := runDetailMode(&out, store, rec.VersionID, true, false, false); err != nil {
		t.Fatalf("runDetailMode: %v", err)
	}
	for _, want := range []string{"Gate Record:", "run-1", "hard", "soft"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("detail output missing %q:\n%s", want, out.String())
		}
	}
}

func TestImportRejectsPartialTable(t *testing.T) {
	store := tempStore(t)
	partial := &qtable.Table{}
	partial.Set(blackjack.State{PlayerTotal: 20, DealerUpcard: 10}, qtable.Values{-0.8, 0.4})
	src := filepath.Join(t.TempDir(), "partial.qtb")
	if err := qtable.WriteFile(src, partial); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := runImport(&bytes.Buffer{}, store, src, true)
	if err == nil || !strings.Contains(err.Error(), "lacks") {
		t.Fatalf("expected incomplete table error, got %v", err)
	}
	versions, err := store.ListVersions(10)
	if err != nil || len(versions) != 0 {
		t.Fatalf("partial table must not be stored, got %d (%v)", len(versions), err)
	}
}
