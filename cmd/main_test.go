package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtul/synthdb/config"
)

const ddl = `
CREATE TABLE users (
    id serial PRIMARY KEY,
    email text NOT NULL UNIQUE -- type:email
);

CREATE TABLE orders (
    id serial PRIMARY KEY,
    user_id int NOT NULL REFERENCES users (id),
    note text
);
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(config.DatabaseURLEnv, "")
	require.NoError(t, os.WriteFile("schema.sql", []byte(ddl), 0o600))

	return dir
}

func TestClone(t *testing.T) {
	dir := setup(t)

	_, stderr, err := execute(t, "clone", "--ddl", "schema.sql", "-o", "seed.sql", "-r", "5", "--table", "orders=8", "--seed", "42")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Generated 13 rows for 2 tables into seed.sql")

	data, err := os.ReadFile(filepath.Join(dir, "seed.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- users: 5 rows")
	assert.Contains(t, string(data), "-- orders: 8 rows")
}

func TestClone_SameSeedSameDump(t *testing.T) {
	setup(t)
	plain := `
CREATE TABLE parts (id int PRIMARY KEY, qty int NOT NULL, note text);
CREATE TABLE stock (id int PRIMARY KEY, part_id int REFERENCES parts (id), price numeric(8,2));
`
	require.NoError(t, os.WriteFile("plain.sql", []byte(plain), 0o600))

	first, _, err := execute(t, "clone", "--ddl", "plain.sql", "-o", "-", "-r", "10", "--seed", "7")
	require.NoError(t, err)
	second, _, err := execute(t, "clone", "--ddl", "plain.sql", "-o", "-", "-r", "10", "--seed", "7")
	require.NoError(t, err)
	third, _, err := execute(t, "clone", "--ddl", "plain.sql", "-o", "-", "-r", "10", "--seed", "8")
	require.NoError(t, err)

	assert.Contains(t, first, `INSERT INTO "stock"`)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, third)
}

func TestPlan(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, "plan", "--ddl", "schema.sql", "-r", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "DEPENDS ON")
	assert.Less(t, strings.Index(stdout, "users"), strings.Index(stdout, "orders"))
	assert.NoFileExists(t, "seed.sql")
}

func TestClone_DryRun(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, "clone", "--ddl", "schema.sql", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "orders")
	assert.NoFileExists(t, "seed.sql")
}

func TestClone_Errors(t *testing.T) {
	setup(t)

	_, _, err := execute(t, "clone", "--ddl", "schema.sql", "--rows", "0")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, err = execute(t, "clone")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, err = execute(t, "clone", "--ddl", "missing.sql")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, "seed.sql")
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
