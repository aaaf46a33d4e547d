package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/chart"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/config"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/eval"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/gate"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/report"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Exit codes.
const (
	exitCommit   = 0
	exitError    = 1
	exitUsage    = 2
	exitRejected = 3
)

// #region main

func main() {
	app, err := config.LoadAppConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(exitUsage)
	}

	opts := options{app: app}
	flag.StringVar(&app.DBPath, "db", app.DBPath, "path to the table version database")
	flag.IntVar(&app.TrainRounds, "rounds", app.TrainRounds, "training rounds")
	flag.Int64Var(&app.TrainSeed, "seed", app.TrainSeed, "random seed")
	flag.IntVar(&app.EvalRounds, "eval-rounds", app.EvalRounds, "evaluation rounds per policy")
	flag.StringVar(&opts.exportPath, "export", "", "also write the trained table to this file")
	flag.StringVar(&opts.chartPath, "chart", "", "write the learning curve as HTML to this file")
	flag.BoolVar(&opts.quiet, "quiet", false, "no progress bar")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: train [--db advisor.db] [--rounds N] [--seed S] [--export q_table.qtb] [--chart curve.html]")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nEnvironment:")
		fmt.Fprintln(os.Stderr, config.Usage())
	}
	flag.Parse()

	logger, err := logging.NewLogger(app.LogLevel, app.LogPretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(exitUsage)
	}
	opts.logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := run(ctx, opts, os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("training failed")
	}
	os.Exit(code)
}

// #endregion main

// #region run

type options struct {
	app        *config.AppConfig
	exportPath string
	chartPath  string
	quiet      bool
	logger     zerolog.Logger
}

// outcome is what one run produced, for the summary and tests.
type outcome struct {
	VersionID string
	Record    logging.TrainRecord
	Decision  gate.GateDecision
}

func run(ctx context.Context, opts options, out io.Writer) (int, error) {
	o, err := trainAndGate(ctx, opts)
	if errors.Is(err, train.ErrInvalidConfig) {
		return exitUsage, err
	}
	if err != nil {
		return exitError, err
	}
	printSummary(out, o)
	if o.Decision.Action != "commit" {
		return exitRejected, nil
	}
	return exitCommit, nil
}

func trainAndGate(ctx context.Context, opts options) (outcome, error) {
	app, logger := opts.app, opts.logger

	cfg := app.TrainConfig()
	if err := cfg.Validate(); err != nil {
		return outcome{}, err
	}

	store, err := qtable.NewStore(app.DBPath)
	if err != nil {
		return outcome{}, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	runID := uuid.New().String()
	logger.Info().Str("run_id", runID).Int("rounds", cfg.Rounds).Int64("seed", cfg.Seed).Msg("training")

	var trainOpts []train.Option
	if !opts.quiet {
		bar := progressbar.NewOptions(cfg.Rounds,
			progressbar.OptionSetDescription("training"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rounds"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
		trainOpts = append(trainOpts, train.WithProgress(max(cfg.Rounds/200, 1), func(done int) {
			_ = bar.Set(done)
		}))
	}

	res, err := train.Train(ctx, cfg, trainOpts...)
	if err != nil {
		return outcome{}, err
	}
	return gateAndRecord(ctx, opts, store, runID, cfg, res)
}

// gateAndRecord evaluates a trained table, gates it and persists the
// outcome. A table vetoed as non-finite cannot be stored; its run is still
// logged, without a version.
func gateAndRecord(ctx context.Context, opts options, store *qtable.Store, runID string, cfg train.Config, res train.Result) (outcome, error) {
	app, logger := opts.app, opts.logger

	// Evaluate candidate, random baseline and the active table on the same shoe.
	evalCfg := app.EvalConfig()
	harness := eval.NewEvalHarness(evalCfg)
	greedy := harness.Run(eval.GreedyPolicy{Table: res.Table})
	random := harness.Run(eval.RandomPolicy{Rng: rand.New(rand.NewSource(evalCfg.Seed + 1))})

	var incumbent *eval.EvalResult
	var parentID string
	current, err := store.GetCurrent()
	switch {
	case err == nil:
		r := harness.Run(eval.GreedyPolicy{Table: current.Table})
		incumbent = &r
		parentID = current.VersionID
	case errors.Is(err, qtable.ErrNoActive):
	default:
		return outcome{}, fmt.Errorf("load active table: %w", err)
	}

	gateCfg := app.GateConfig()
	decision := gate.NewGate(gateCfg).Evaluate(gate.Candidate{
		Table:   res.Table,
		Metrics: res.Metrics,
		Eval:    greedy,
	}, incumbent)

	rec := logging.TrainRecord{
		RunID:      runID,
		Config:     cfg,
		Metrics:    res.Metrics,
		Greedy:     greedy,
		Random:     random,
		Incumbent:  incumbent,
		Thresholds: logging.TrainRecordThresholds{Eval: evalCfg, Gate: gateCfg},
	}
	rec.ApplyDecision(decision)
	recJSON, err := rec.JSON()
	if err != nil {
		return outcome{}, err
	}

	configJSON, err := encodeJSON(cfg)
	if err != nil {
		return outcome{}, err
	}
	metrics := res.Metrics
	metrics.Curve = nil
	metricsJSON, err := encodeJSON(metrics)
	if err != nil {
		return outcome{}, err
	}

	version := qtable.Record{
		ParentID:    parentID,
		Table:       res.Table,
		Rounds:      cfg.Rounds,
		Seed:        cfg.Seed,
		ConfigJSON:  configJSON,
		MetricsJSON: metricsJSON,
	}
	storable := !decision.HasVeto(gate.VetoNonFinite)
	// Rejected tables are kept for inspection but never activated.
	switch {
	case !storable:
		version = qtable.Record{}
	case decision.Action == "commit":
		version, err = store.CommitTable(version)
	default:
		version, err = store.SaveVersion(version)
	}
	if err != nil {
		return outcome{}, err
	}

	err = logging.LogDecision(store.DB(), logging.ProvenanceEntry{
		VersionID:   version.VersionID,
		RunID:       runID,
		TriggerType: logging.TriggerTrain,
		RecordJSON:  recJSON,
		Decision:    decision.Action,
		Reason:      decision.Reason,
	})
	if err != nil {
		return outcome{}, err
	}
	logger.Info().
		Str("version", version.VersionID).
		Str("decision", decision.Action).
		Float64("edge", greedy.Edge).
		Msg(decision.Reason)

	if opts.exportPath != "" && storable {
		if err := qtable.WriteFile(opts.exportPath, res.Table); err != nil {
			return outcome{}, err
		}
		logger.Info().Str("path", opts.exportPath).Msg("exported table")
	}
	if opts.chartPath != "" && len(res.Metrics.Curve) > 0 {
		if err := writeChart(opts.chartPath, runID, res.Metrics.Curve); err != nil {
			return outcome{}, err
		}
		logger.Info().Str("path", opts.chartPath).Msg("wrote learning curve")
	}
	if app.DatabaseURL != "" {
		if err := mirrorRun(ctx, app.DatabaseURL, version.VersionID, rec, res.Metrics.Curve); err != nil {
			logger.Warn().Err(err).Msg("run report not written")
		}
	}

	return outcome{VersionID: version.VersionID, Record: rec, Decision: decision}, nil
}

// #endregion run

// #region side-outputs

func writeChart(path, runID string, curve []train.CurvePoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer f.Close()
	return chart.RenderLearningCurve(f, "training run "+shortID(runID), curve)
}

func mirrorRun(ctx context.Context, dsn, versionID string, rec logging.TrainRecord, curve []train.CurvePoint) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := report.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := report.Migrate(ctx, db); err != nil {
		return err
	}
	rows := make([]report.CurveRow, len(curve))
	for i, p := range curve {
		rows[i] = report.CurveRow{Round: p.Round, AvgReward: p.AvgReward, Epsilon: p.Epsilon}
	}
	_, err = db.InsertRun(ctx, report.SummaryFromRecord(versionID, rec), rows)
	return err
}

// #endregion side-outputs

// #region output

func printSummary(w io.Writer, o outcome) {
	m := o.Record.Metrics
	fmt.Fprintf(w, "Run:        %s\n", o.Record.RunID)
	if o.VersionID == "" {
		fmt.Fprintf(w, "Version:    (not stored)\n")
	} else {
		fmt.Fprintf(w, "Version:    %s\n", o.VersionID)
	}
	fmt.Fprintf(w, "Rounds:     %s (%s transitions, %d/%d pairs visited)\n",
		humanize.Comma(int64(m.Rounds)), humanize.Comma(int64(m.Transitions)), m.VisitedPairs, 2*qtable.Size)
	fmt.Fprintf(w, "Elapsed:    %s\n", time.Duration(m.ElapsedMs)*time.Millisecond)
	fmt.Fprintf(w, "Final eps:  %.4f\n", m.FinalEpsilon)
	fmt.Fprintf(w, "\n%-10s  %8s  %8s  %8s  %8s\n", "Policy", "Win", "Loss", "Push", "Edge")
	fmt.Fprintf(w, "%-10s+-%8s+-%8s+-%8s+-%8s\n", "----------", "--------", "--------", "--------", "--------")
	printEvalRow(w, "greedy", o.Record.Greedy)
	printEvalRow(w, "random", o.Record.Random)
	if o.Record.Incumbent != nil {
		printEvalRow(w, "active", *o.Record.Incumbent)
	}
	fmt.Fprintf(w, "\nDecision:   %s\n", o.Decision.Action)
	fmt.Fprintf(w, "Reason:     %s\n", o.Decision.Reason)
	for _, v := range o.Decision.VetoSignals {
		fmt.Fprintf(w, "  veto %-16s %s\n", v.Type, v.Reason)
	}
}

func printEvalRow(w io.Writer, name string, r eval.EvalResult) {
	win, _ := r.Metric("win_rate")
	loss, _ := r.Metric("loss_rate")
	push, _ := r.Metric("push_rate")
	fmt.Fprintf(w, "%-10s  %8.4f  %8.4f  %8.4f  %+8.4f\n", name, win, loss, push, r.Edge)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
