// Package main runs liquidation scenarios from the command line.
//
//	waterfall -use-fixtures -scenario-id 101
//	waterfall -use-fixtures -company-id 1 -all
//	waterfall -use-fixtures -company-id 1 -exit-amount 25000000.00
//	waterfall -postgres-dsn postgres://... -scenario-id 7 -verify
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"flexile-liquidation/internal/config"
	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/fixtures"
	"flexile-liquidation/internal/liquidation"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	chstore "flexile-liquidation/internal/storage/clickhouse"
	"flexile-liquidation/internal/storage/memory"
	"flexile-liquidation/internal/storage/migrations"
	pgstore "flexile-liquidation/internal/storage/postgres"
	"flexile-liquidation/internal/verification"
	"flexile-liquidation/internal/waterfall"
)

type options struct {
	scenarioID    int64
	companyID     int64
	all           bool
	exitAmount    string
	exitDate      string
	verify        bool
	jsonOutput    bool
	useFixtures   bool
	postgresDSN   string
	clickhouseDSN string
	concurrency   int
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	var opts options
	flag.Int64Var(&opts.scenarioID, "scenario-id", 0, "Run a single scenario")
	flag.Int64Var(&opts.companyID, "company-id", 0, "Company for -all or -exit-amount")
	flag.BoolVar(&opts.all, "all", false, "Run every draft scenario of -company-id")
	flag.StringVar(&opts.exitAmount, "exit-amount", "", "Preview an exit amount in dollars (nothing is stored)")
	flag.StringVar(&opts.exitDate, "exit-date", "", "Valuation date for -exit-amount, YYYY-MM-DD (default today)")
	flag.BoolVar(&opts.verify, "verify", false, "Recompute -scenario-id and compare with stored payouts")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of a table")
	flag.BoolVar(&opts.useFixtures, "use-fixtures", cfg.UseMemory, "Use in-memory demo fixtures instead of the database")
	flag.StringVar(&opts.postgresDSN, "postgres-dsn", cfg.Postgres.DSN, "PostgreSQL connection string")
	flag.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", cfg.ClickHouse.DSN, "ClickHouse connection string (optional)")
	flag.IntVar(&opts.concurrency, "concurrency", cfg.BatchConcurrency, "Parallel scenario runs for -all")
	flag.Parse()

	if err := validate(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, logger, os.Stdout); err != nil {
		logger.WithError(err).Error("waterfall failed")
		os.Exit(1)
	}
}

func validate(opts options) error {
	modes := 0
	if opts.scenarioID > 0 {
		modes++
	}
	if opts.all {
		modes++
	}
	if opts.exitAmount != "" {
		modes++
	}
	switch {
	case modes != 1:
		return errors.New("exactly one of -scenario-id, -all or -exit-amount is required")
	case (opts.all || opts.exitAmount != "") && opts.companyID <= 0:
		return errors.New("-company-id is required with -all and -exit-amount")
	case opts.verify && opts.scenarioID <= 0:
		return errors.New("-verify requires -scenario-id")
	case !opts.useFixtures && opts.postgresDSN == "":
		return errors.New("-postgres-dsn is required when not using fixtures (use -use-fixtures for demo data)")
	}
	return nil
}

type cliStores struct {
	capTables    storage.CapTableStore
	scenarios    storage.ScenarioStore
	payouts      storage.PayoutStore
	runSummaries storage.RunSummaryStore
}

func run(ctx context.Context, opts options, logger *logrus.Logger, out io.Writer) error {
	st, cleanup, err := createStores(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics := observability.NewMetrics("waterfall_cli", prometheus.NewRegistry())
	svc := liquidation.NewService(liquidation.Options{
		CapTables:    st.capTables,
		Scenarios:    st.scenarios,
		Payouts:      st.payouts,
		RunSummaries: st.runSummaries,
		Metrics:      metrics,
		Logger:       logger,
	})

	switch {
	case opts.verify:
		v := verification.NewPayoutVerifier(verification.PayoutVerifierOptions{
			Scenarios: st.scenarios,
			CapTables: st.capTables,
			Payouts:   st.payouts,
		})
		if opts.useFixtures {
			// Memory stores start empty: run first so there is something to verify.
			if _, err := svc.Run(ctx, opts.scenarioID); err != nil {
				return err
			}
		}
		report, err := v.VerifyScenario(ctx, opts.scenarioID)
		if err != nil {
			return err
		}
		return printVerification(out, report, opts.jsonOutput)

	case opts.scenarioID > 0:
		res, err := svc.Run(ctx, opts.scenarioID)
		if err != nil {
			return err
		}
		ct, err := st.capTables.LoadCapTable(ctx, res.Scenario.CompanyID)
		if err != nil {
			return err
		}
		return printDistribution(out, res.Scenario.Name, ct, res.Distribution, opts.jsonOutput)

	case opts.all:
		batch, err := svc.RunBatch(ctx, opts.companyID, opts.concurrency)
		if err != nil {
			return err
		}
		return printBatch(out, batch, opts.jsonOutput)

	default:
		return preview(ctx, svc, st.capTables, opts, out)
	}
}

func preview(ctx context.Context, svc *liquidation.Service, capTables storage.CapTableReader, opts options, out io.Writer) error {
	dollars, err := decimal.NewFromString(opts.exitAmount)
	if err != nil {
		return fmt.Errorf("parse -exit-amount: %w", err)
	}
	var exitDate time.Time
	if opts.exitDate != "" {
		if exitDate, err = time.Parse(time.DateOnly, opts.exitDate); err != nil {
			return fmt.Errorf("parse -exit-date: %w", err)
		}
	}

	d, err := svc.Preview(ctx, opts.companyID, domain.DollarsToCents(dollars), exitDate)
	if err != nil {
		return err
	}
	ct, err := capTables.LoadCapTable(ctx, opts.companyID)
	if err != nil {
		return err
	}
	return printDistribution(out, "preview", ct, d, opts.jsonOutput)
}

// createStores creates stores based on mode.
func createStores(ctx context.Context, opts options) (*cliStores, func(), error) {
	if opts.useFixtures {
		st := &cliStores{
			capTables:    memory.NewCapTableStore(),
			scenarios:    memory.NewScenarioStore(),
			payouts:      memory.NewPayoutStore(),
			runSummaries: memory.NewRunSummaryStore(),
		}
		if err := fixtures.Load(ctx, st.capTables, st.scenarios); err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	st := &cliStores{
		capTables: pgstore.NewCapTableStore(pool),
		scenarios: pgstore.NewScenarioStore(pool),
		payouts:   pgstore.NewPayoutStore(pool),
	}
	if opts.clickhouseDSN == "" {
		return st, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.runSummaries = chstore.NewRunSummaryStore(chConn)
	return st, func() {
		chConn.Close()
		pool.Close()
	}, nil
}

func printDistribution(out io.Writer, title string, ct *domain.CapTable, d *waterfall.Distribution, asJSON bool) error {
	if asJSON {
		return writeJSON(out, liquidation.NewDistributionView(d))
	}

	fmt.Fprintf(out, "%s: %s exit for %s\n", title, formatDollars(d.ExitAmountCents), ct.Company.Name)
	for i, t := range d.Tiers {
		fmt.Fprintf(out, "  tier %d  %-28s preference %s\n", i+1, t.Label, formatDollars(t.PreferenceCents()))
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Investor\tSecurity\tShares\tPreference\tParticipation\tCommon\tTotal\t")
	for _, p := range d.Payouts {
		c := p.Claim
		name := fmt.Sprintf("#%d", c.InvestorID)
		if inv := ct.InvestorByID(c.InvestorID); inv != nil {
			name = inv.Name
		}
		security := fmt.Sprintf("%s #%d", c.SecurityType, c.SecurityID)
		if c.ShareClass != nil {
			security = c.ShareClass.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
			name, security, c.Shares,
			formatDollars(p.PreferenceCents), formatDollars(p.ParticipationCents),
			formatDollars(p.CommonProceedsCents), formatDollars(p.TotalCents()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ndistributed %s, undistributed %s\n", formatDollars(d.DistributedCents), formatDollars(d.UndistributedCents))
	for _, c := range d.Conversions {
		decision := "redeemed"
		if c.Converted {
			decision = fmt.Sprintf("converted into %d shares at %s (%s)", c.Terms.ConvertedShares, c.Terms.ConversionPrice.StringFixed(4), c.Terms.PriceSource)
		}
		fmt.Fprintf(out, "convertible #%d: %s\n", c.Terms.Security.ID, decision)
	}
	if !d.ConversionConverged {
		fmt.Fprintf(out, "warning: conversion decisions did not converge after %d passes\n", d.ConversionPasses)
	}
	return nil
}

func printBatch(out io.Writer, batch *liquidation.BatchResult, asJSON bool) error {
	if asJSON {
		type failure struct {
			ScenarioID int64  `json:"scenario_id"`
			Error      string `json:"error"`
		}
		type run struct {
			ScenarioID       int64  `json:"scenario_id"`
			RunID            string `json:"run_id"`
			DistributedCents int64  `json:"distributed_cents"`
		}
		body := struct {
			Runs     []run     `json:"runs"`
			Skipped  []int64   `json:"skipped"`
			Failures []failure `json:"failures"`
		}{Runs: []run{}, Skipped: append([]int64{}, batch.Skipped...), Failures: []failure{}}
		for _, r := range batch.Runs {
			body.Runs = append(body.Runs, run{r.Scenario.ID, r.RunID, r.Distribution.DistributedCents})
		}
		for _, f := range batch.Failures {
			body.Failures = append(body.Failures, failure{f.ScenarioID, f.Err.Error()})
		}
		return writeJSON(out, body)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Scenario\tName\tExit\tDistributed\tPayouts\tRun")
	for _, r := range batch.Runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", r.Scenario.ID, r.Scenario.Name,
			formatDollars(r.Scenario.ExitAmountCents), formatDollars(r.Distribution.DistributedCents),
			len(r.Payouts), r.RunID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, id := range batch.Skipped {
		fmt.Fprintf(out, "skipped scenario %d (final)\n", id)
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(out, "failed scenario %d: %v\n", f.ScenarioID, f.Err)
	}
	if len(batch.Failures) > 0 {
		return fmt.Errorf("%d scenario(s) failed", len(batch.Failures))
	}
	return nil
}

func printVerification(out io.Writer, report *verification.VerificationReport, asJSON bool) error {
	if asJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "scenario %d: stored %d, recomputed %d\n", report.ScenarioID, report.StoredCount, report.RecomputedCount)
		for _, id := range report.MissingPayouts {
			fmt.Fprintf(out, "  missing %s\n", id)
		}
		for _, id := range report.UnexpectedPayouts {
			fmt.Fprintf(out, "  unexpected %s\n", id)
		}
		for _, r := range report.Results {
			for _, d := range r.Divergences {
				fmt.Fprintf(out, "  %s %s: stored %v, recomputed %v\n", r.PayoutID, d.Field, d.Expected, d.Actual)
			}
		}
	}
	if !report.Match {
		return fmt.Errorf("scenario %d: stored payouts diverge from recomputation", report.ScenarioID)
	}
	if !asJSON {
		fmt.Fprintln(out, "OK: stored payouts match")
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDollars(cents int64) string {
	return "$" + domain.CentsToDollars(cents).StringFixed(2)
}
