package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/levtul/synthdb/config"
	"github.com/levtul/synthdb/domain"
	"github.com/levtul/synthdb/synth"
)

func newCloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Generate a synthetic SQL dump of a schema",
		Long: `Inspect the schema, resolve an insertion order and write one transaction
of INSERT statements with synthetic rows. Foreign keys deferred to break
cycles are left NULL, or set afterwards with UPDATE statements when
--backfill is given.`,
		Example: `  # Clone the public schema of a live database
  synthdb clone --url postgres://app@localhost/shop -o seed.sql

  # Clone from a DDL file, 500 rows per table and 20 for countries
  synthdb clone --ddl schema.sql -r 500 --table countries=20

  # Show the insertion plan only
  synthdb clone --ddl schema.sql --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClone(cmd, false)
		},
	}

	fs := cmd.Flags()
	addSourceFlags(fs)
	fs.StringP("output", "o", config.DefaultOutput, `output file, "-" for stdout`)
	fs.Int("sample-percent", config.DefaultSamplePercent, "chance (0-100) that a column reuses a sampled real value")
	fs.Int("sample-size", config.DefaultSampleSize, "values sampled per column from the live database")
	fs.Float64("null-probability", config.DefaultNullProbability, "chance that a nullable column is NULL")
	fs.Int("concurrency", config.DefaultConcurrency, "tables sampled in parallel")
	fs.Int64("seed", 0, "random seed, 0 picks one")
	fs.Int("batch-size", config.DefaultBatchSize, "rows per INSERT statement")
	fs.Bool("backfill", false, "set deferred foreign keys with UPDATE statements")
	fs.Bool("reset-sequences", false, "move serial sequences past the generated keys")
	fs.Bool("dry-run", false, "print the insertion plan without generating data")

	return cmd
}

func runClone(cmd *cobra.Command, dryRun bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.DryRun = cfg.DryRun || dryRun

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if cfg.File != "" {
		logger.Debug("using config file", "path", cfg.File)
	}

	info := color.New(color.FgCyan)
	opts := cloneOptions(cfg, logger)
	opts.Progress = func(format string, args ...any) {
		info.Fprintf(cmd.ErrOrStderr(), "🔍 "+format+"\n", args...)
	}

	report, err := domain.Clone(cmd.Context(), opts, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		gen := synth.New(opts.Synth, nil)
		domain.WritePlan(cmd.OutOrStdout(), report.Plan, gen.RowsFor)
		if n := len(report.Plan.Deferred); n > 0 {
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "⚠️  %d foreign keys deferred to break cycles\n", n)
		}
		return nil
	}

	done := color.New(color.FgGreen, color.Bold)
	msg := fmt.Sprintf("✅ Generated %d rows for %d tables", report.Result.RowCount(), len(report.Plan.Tables))
	if report.Output != "" {
		msg += " into " + report.Output
	}
	done.Fprintln(cmd.ErrOrStderr(), msg)

	return nil
}
