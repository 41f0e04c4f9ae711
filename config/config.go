// Package config loads synthdb settings from defaults, a YAML file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix      = "SYNTHDB_"
	DatabaseURLEnv = "DATABASE_URL"
	DotEnvFile     = ".env"

	DefaultOutput          = "seed.sql"
	DefaultRows            = 1000
	DefaultSamplePercent   = 20
	DefaultSampleSize      = 100
	DefaultConcurrency     = 4
	DefaultSchema          = "public"
	DefaultBatchSize       = 100
	DefaultNullProbability = 0.1
)

var (
	ErrInvalidConfig = errors.New("invalid config")

	configFiles = []string{"synthdb.yaml", "synthdb.yml"}
)

type Config struct {
	URL    string `koanf:"url"`
	DDL    string `koanf:"ddl"`
	Schema string `koanf:"schema"`
	Output string `koanf:"output"`

	Rows            int            `koanf:"rows"`
	Tables          map[string]int `koanf:"tables"`
	SamplePercent   int            `koanf:"sample_percent"`
	SampleSize      int            `koanf:"sample_size"`
	NullProbability float64        `koanf:"null_probability"`
	Concurrency     int            `koanf:"concurrency"`
	Seed            int64          `koanf:"seed"`

	BatchSize      int    `koanf:"batch_size"`
	Backfill       bool   `koanf:"backfill"`
	ResetSequences bool   `koanf:"reset_sequences"`
	PgFormat       string `koanf:"pg_format"`
	DryRun         bool   `koanf:"dry_run"`
	Verbose        bool   `koanf:"verbose"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"schema":           DefaultSchema,
		"output":           DefaultOutput,
		"rows":             DefaultRows,
		"sample_percent":   DefaultSamplePercent,
		"sample_size":      DefaultSampleSize,
		"null_probability": DefaultNullProbability,
		"concurrency":      DefaultConcurrency,
		"batch_size":       DefaultBatchSize,
	}
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	return ""
}

// Load reads the configuration. Layers, lowest first: defaults, the config
// file (cfgFile or synthdb.yaml in the working directory), .env and
// SYNTHDB_* variables, then flags that were set explicitly. DATABASE_URL is
// used when no url ends up configured.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// --table users=500 --table orders=2000
			if key == "table" {
				rows, err := flags.GetStringToInt(f.Name)
				if err != nil {
					return "", nil
				}
				tables := make(map[string]any, len(rows))
				for name, n := range rows {
					tables[name] = n
				}
				return "tables", tables
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if cfg.URL == "" {
		cfg.URL = os.Getenv(DatabaseURLEnv)
	}

	return &cfg, nil
}

// loadDotEnv exports .env from the working directory without overriding
// variables that are already set.
func loadDotEnv() error {
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		return fmt.Errorf("error reading %s: %w", DotEnvFile, err)
	}

	return nil
}

// Validate rejects unusable settings and clamps the rest into range.
func (c *Config) Validate() error {
	var errs []error
	if c.URL == "" && c.DDL == "" {
		errs = append(errs, errors.New("either url or ddl must be set"))
	}
	if c.Rows <= 0 {
		errs = append(errs, fmt.Errorf("rows must be positive, got %d", c.Rows))
	}
	for name, n := range c.Tables {
		if n < 0 {
			errs = append(errs, fmt.Errorf("row count for table %s must not be negative, got %d", name, n))
		}
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output must be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	c.SamplePercent = min(max(c.SamplePercent, 0), 100)
	c.NullProbability = min(max(c.NullProbability, 0), 1)
	if c.SampleSize < 0 {
		c.SampleSize = 0
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}

	return nil
}
