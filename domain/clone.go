package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/levtul/synthdb/db"
	"github.com/levtul/synthdb/dump"
	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/resolver"
	"github.com/levtul/synthdb/synth"
)

// StdoutOutput as the output path writes the dump to stdout.
const StdoutOutput = "-"

var ErrNoSource = errors.New("either a database url or a ddl file is required")

type Options struct {
	URL      string
	DDL      string
	Schema   string
	PgFormat string

	SampleSize  int
	Concurrency int

	Output string
	DryRun bool

	Synth synth.Options
	Dump  dump.Options

	// Progress receives one line per pipeline stage.
	Progress func(format string, args ...any)
}

type Report struct {
	Tables []*model.Table
	Plan   *resolver.Plan
	Result *synth.Result
	Output string
}

// Extract loads the tables of the configured schema from the DDL file or,
// without one, from the live database including value samples. Dry runs
// skip sampling.
func Extract(ctx context.Context, opts Options, logger *slog.Logger) ([]*model.Table, error) {
	if opts.DDL != "" {
		sql, err := ReadDDL(ctx, opts.PgFormat, opts.DDL, logger)
		if err != nil {
			return nil, err
		}
		return Walk(sql, opts.Schema, logger)
	}
	if opts.URL == "" {
		return nil, ErrNoSource
	}

	conn, err := db.Connect(ctx, opts.URL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	tables, err := db.NewCatalog(conn, logger).Tables(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}

	if opts.Synth.SamplePercent > 0 && !opts.DryRun {
		sampler := db.NewSampler(conn, opts.SampleSize, opts.Concurrency, logger)
		if err := sampler.Sample(ctx, opts.Schema, tables); err != nil {
			return nil, err
		}
	}

	return tables, nil
}

// Clone runs extraction, resolution, generation and emission. A dry run
// stops after resolution. Nothing is written unless every stage succeeds.
func Clone(ctx context.Context, opts Options, stdout io.Writer, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, ...any) {}
	}

	progress("Analyzing schema %s of %s...", opts.Schema, source(opts))
	tables, err := Extract(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	progress("Found %d tables, resolving dependencies...", len(tables))
	plan, err := resolver.Resolve(tables)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	for _, fk := range plan.Deferred {
		logger.Warn("foreign key deferred to break a cycle", slog.String("edge", fk.String()))
	}

	report := &Report{Tables: tables, Plan: plan}
	if opts.DryRun {
		return report, nil
	}

	progress("Generating synthetic rows...")
	res, err := synth.New(opts.Synth, logger).Generate(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	report.Result = res

	dumpOpts := opts.Dump
	if dumpOpts.Source == "" {
		dumpOpts.Source = source(opts)
	}
	emitter := dump.NewEmitter(dumpOpts, logger)

	if opts.Output == StdoutOutput {
		if err := emitter.Write(stdout, res); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
		return report, nil
	}

	progress("Writing %d rows to %s...", res.RowCount(), opts.Output)
	if err := emitter.WriteFile(opts.Output, res); err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	report.Output = opts.Output

	return report, nil
}

// source names the schema origin without credentials.
func source(opts Options) string {
	if opts.DDL != "" {
		return opts.DDL
	}

	u, err := url.Parse(opts.URL)
	if err != nil || u.Host == "" {
		return "database"
	}

	return u.Redacted()
}
