package main

import (
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/levtul/synthdb/config"
	"github.com/levtul/synthdb/domain"
	"github.com/levtul/synthdb/dump"
	"github.com/levtul/synthdb/synth"
)

var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "synthdb",
		Short: "Clone a PostgreSQL schema into a synthetic SQL dump",
		Long: `synthdb reads a PostgreSQL schema from a live database or a DDL file,
orders its tables so every foreign key points at rows that already exist,
and writes a loadable SQL script with synthetic rows of the same shape.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default: ./synthdb.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	root.AddCommand(newCloneCmd())
	root.AddCommand(newPlanCmd())

	return root
}

// addSourceFlags registers the flags shared by clone and plan.
func addSourceFlags(fs *pflag.FlagSet) {
	fs.String("url", "", "PostgreSQL connection string (falls back to DATABASE_URL)")
	fs.String("ddl", "", "read the schema from a DDL file instead of a database")
	fs.String("schema", config.DefaultSchema, "schema to clone")
	fs.String("pg-format", "", "normalize the DDL file with this pg_format binary first")
	fs.Lookup("pg-format").NoOptDefVal = domain.DefaultFormatter
	fs.IntP("rows", "r", config.DefaultRows, "rows per table")
	fs.StringToInt("table", nil, "per-table row count, e.g. --table users=500")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// cloneOptions maps the loaded configuration onto the pipeline options. A
// zero seed picks one from the clock; it is logged so the run can be
// repeated.
func cloneOptions(cfg *config.Config, logger *slog.Logger) domain.Options {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Debug("random seed", slog.Int64("seed", seed))

	return domain.Options{
		URL:         cfg.URL,
		DDL:         cfg.DDL,
		Schema:      cfg.Schema,
		PgFormat:    cfg.PgFormat,
		SampleSize:  cfg.SampleSize,
		Concurrency: cfg.Concurrency,
		Output:      cfg.Output,
		DryRun:      cfg.DryRun,
		Synth: synth.Options{
			Rows:            cfg.Rows,
			TableRows:       cfg.Tables,
			SamplePercent:   cfg.SamplePercent,
			NullProbability: cfg.NullProbability,
			Backfill:        cfg.Backfill,
			Rand:            rand.New(rand.NewSource(seed)),
		},
		Dump: dump.Options{
			BatchSize:      cfg.BatchSize,
			ResetSequences: cfg.ResetSequences,
		},
	}
}
