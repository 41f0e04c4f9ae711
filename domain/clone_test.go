package domain

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtul/synthdb/dump"
	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/resolver"
	"github.com/levtul/synthdb/synth"
	"github.com/levtul/synthdb/testutil"
)

func writeDDL(t *testing.T, sql string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte(sql), 0o600))

	return path
}

func cloneOptions(ddl, output string) Options {
	gen := synth.DefaultOptions()
	gen.Rows = 20
	gen.Rand = rand.New(rand.NewSource(7))
	gen.Now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return Options{
		DDL:    ddl,
		Schema: "public",
		Output: output,
		Synth:  gen,
		Dump:   dump.Options{BatchSize: dump.DefaultBatchSize},
	}
}

func TestClone_File(t *testing.T) {
	output := filepath.Join(t.TempDir(), "seed.sql")
	opts := cloneOptions(writeDDL(t, shopDDL), output)

	var lines []string
	opts.Progress = func(format string, args ...any) {
		lines = append(lines, format)
	}

	report, err := Clone(context.Background(), opts, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, output, report.Output)
	assert.Equal(t, []string{"users", "orders", "items"}, report.Plan.Names())
	require.NotNil(t, report.Result)
	assert.Equal(t, 50+20+20, report.Result.RowCount())
	assert.Len(t, lines, 4)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	script := string(data)
	assert.True(t, strings.HasPrefix(script, "-- Synthetic data generated by synthdb"))
	assert.Contains(t, script, "-- Insertion order: users, orders, items")
	assert.Contains(t, script, `INSERT INTO "users"`)
	assert.Less(t, strings.Index(script, `INSERT INTO "users"`), strings.Index(script, `INSERT INTO "orders"`))
	assert.Less(t, strings.Index(script, `INSERT INTO "orders"`), strings.Index(script, `INSERT INTO "items"`))
	assert.True(t, strings.HasSuffix(script, "COMMIT;\n"))
}

func TestClone_Stdout(t *testing.T) {
	opts := cloneOptions(writeDDL(t, shopDDL), StdoutOutput)

	var out bytes.Buffer
	report, err := Clone(context.Background(), opts, &out, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Output)
	assert.Contains(t, out.String(), "BEGIN;")
}

func TestClone_DryRun(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "seed.sql")
	opts := cloneOptions(writeDDL(t, shopDDL), output)
	opts.DryRun = true

	report, err := Clone(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, report.Result)
	assert.Equal(t, []string{"users", "orders", "items"}, report.Plan.Names())
	assert.NoFileExists(t, output)
}

func TestClone_CycleDeferred(t *testing.T) {
	ddl := `
CREATE TABLE a (id int PRIMARY KEY, b_id int);
CREATE TABLE b (id int PRIMARY KEY, a_id int NOT NULL REFERENCES a (id));
ALTER TABLE a ADD CONSTRAINT a_b_fkey FOREIGN KEY (b_id) REFERENCES b (id);
`
	opts := cloneOptions(writeDDL(t, ddl), StdoutOutput)
	opts.Synth.Backfill = true

	var out bytes.Buffer
	report, err := Clone(context.Background(), opts, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, report.Plan.Names())
	require.Len(t, report.Plan.Deferred, 1)
	assert.Equal(t, "a_b_fkey", report.Plan.Deferred[0].Name)
	assert.Len(t, report.Result.Fixups, 20)
	assert.Contains(t, out.String(), `UPDATE "a" SET "b_id" =`)
}

func TestClone_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		_, err := Clone(context.Background(), Options{Schema: "public"}, nil, nil)
		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("unbreakable cycle leaves no output", func(t *testing.T) {
		ddl := `
CREATE TABLE a (id int PRIMARY KEY, b_id int NOT NULL);
CREATE TABLE b (id int PRIMARY KEY, a_id int NOT NULL REFERENCES a (id));
ALTER TABLE a ADD CONSTRAINT a_b_fkey FOREIGN KEY (b_id) REFERENCES b (id);
`
		output := filepath.Join(t.TempDir(), "seed.sql")
		_, err := Clone(context.Background(), cloneOptions(writeDDL(t, ddl), output), nil, nil)
		assert.ErrorIs(t, err, resolver.ErrCyclicDependency)
		assert.NoFileExists(t, output)
	})

	t.Run("reference to a missing table", func(t *testing.T) {
		ddl := "CREATE TABLE orders (id int PRIMARY KEY, user_id int NOT NULL REFERENCES users);\n"
		opts := cloneOptions(writeDDL(t, ddl), StdoutOutput)
		opts.DryRun = true
		_, err := Clone(context.Background(), opts, nil, nil)
		assert.ErrorIs(t, err, resolver.ErrDanglingForeignKey)
		assert.ErrorContains(t, err, "referenced table does not exist")
	})

	t.Run("missing ddl file", func(t *testing.T) {
		opts := cloneOptions(filepath.Join(t.TempDir(), "missing.sql"), StdoutOutput)
		_, err := Clone(context.Background(), opts, nil, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty schema", func(t *testing.T) {
		opts := cloneOptions(writeDDL(t, "SET statement_timeout = 0;\n"), StdoutOutput)
		_, err := Clone(context.Background(), opts, nil, nil)
		assert.ErrorIs(t, err, model.ErrEmptySchema)
	})
}

func TestSource(t *testing.T) {
	assert.Equal(t, "schema.sql", source(Options{DDL: "schema.sql"}))
	assert.Equal(t, "postgres://app:xxxxx@db:5432/shop", source(Options{URL: "postgres://app:secret@db:5432/shop"}))
	assert.Equal(t, "database", source(Options{URL: "host=db user=app"}))
}

func TestWritePlan(t *testing.T) {
	tables, err := Walk(`
CREATE TABLE a (id int PRIMARY KEY, b_id int);
CREATE TABLE b (id int PRIMARY KEY, a_id int NOT NULL REFERENCES a (id));
CREATE TABLE c (id int PRIMARY KEY, b_id int REFERENCES b (id));
ALTER TABLE a ADD CONSTRAINT a_b_fkey FOREIGN KEY (b_id) REFERENCES b (id);
`, "", nil)
	require.NoError(t, err)
	plan, err := resolver.Resolve(tables)
	require.NoError(t, err)

	var out bytes.Buffer
	WritePlan(&out, plan, func(*model.Table) int { return 10 })

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7, out.String())
	assert.Contains(t, lines[1], "TABLE")
	assert.Contains(t, lines[1], "DEPENDS ON")
	assert.Regexp(t, `│ 1 │ a\s+│\s+1 │\s+10 │\s+│ b_id -> b`, lines[3])
	assert.Regexp(t, `│ 2 │ b\s+│\s+2 │\s+10 │ a\s+│`, lines[4])
	assert.Regexp(t, `│ 3 │ c\s+│\s+3 │\s+10 │ b\s+│`, lines[5])
}
