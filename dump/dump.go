// Package dump renders generated rows as a transactional SQL script that
// loads into an empty copy of the source schema.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/synth"
)

const DefaultBatchSize = 100

type Options struct {
	// BatchSize is the number of rows per INSERT statement.
	BatchSize int
	// ResetSequences moves serial sequences past the generated keys.
	ResetSequences bool
	// Source names where the schema came from, for the header.
	Source string
}

type Emitter struct {
	opts   Options
	logger *slog.Logger
}

func NewEmitter(opts Options, logger *slog.Logger) *Emitter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Emitter{opts: opts, logger: logger}
}

// WriteFile writes the script to path. The file is written next to its
// destination and renamed into place, so a failed run leaves no partial
// output.
func (e *Emitter) WriteFile(path string, res *synth.Result) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".synthdb-*.sql")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = e.Write(tmp, res); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("unable to set output file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("unable to close output file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to move output file into place: %w", err)
	}

	e.logger.Info("dump written", slog.String("path", path), slog.Int("rows", res.RowCount()))

	return nil
}

// Write renders the whole script: one transaction with the inserts in plan
// order, then the deferred key updates, then sequence resets.
func (e *Emitter) Write(w io.Writer, res *synth.Result) error {
	bw := bufio.NewWriter(w)

	e.header(bw, res)
	fmt.Fprint(bw, "BEGIN;\n")

	for _, data := range res.Tables {
		if err := e.writeTable(bw, data); err != nil {
			return err
		}
	}

	if len(res.Fixups) > 0 {
		fmt.Fprintf(bw, "\n-- deferred foreign keys: %d updates\n", len(res.Fixups))
		for _, f := range res.Fixups {
			stmt, err := Update(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, "%s;\n", stmt)
		}
	}

	if e.opts.ResetSequences {
		e.writeSequences(bw, res)
	}

	fmt.Fprint(bw, "\nCOMMIT;\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("unable to write dump: %w", err)
	}

	return nil
}

func (e *Emitter) header(w io.Writer, res *synth.Result) {
	fmt.Fprint(w, "-- Synthetic data generated by synthdb\n")
	if e.opts.Source != "" {
		fmt.Fprintf(w, "-- Source: %s\n", e.opts.Source)
	}
	names := make([]string, len(res.Tables))
	for i, t := range res.Tables {
		names[i] = t.Table.Name
	}
	fmt.Fprintf(w, "-- Tables: %d, rows: %d\n", len(res.Tables), res.RowCount())
	fmt.Fprintf(w, "-- Insertion order: %s\n\n", strings.Join(names, ", "))
}

func (e *Emitter) writeTable(w io.Writer, data synth.TableData) error {
	fmt.Fprintf(w, "\n-- %s: %d rows\n", data.Table.Name, len(data.Rows))
	for start := 0; start < len(data.Rows); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(data.Rows))
		stmt, err := Insert(data.Table, data.Rows[start:end])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s;\n", stmt)
	}
	e.logger.Debug("table written", slog.String("table", data.Table.Name), slog.Int("rows", len(data.Rows)))

	return nil
}

// writeSequences resets the sequence behind every single-column integer
// primary key. setval on a NULL sequence name is a no-op, so columns without
// a sequence are harmless.
func (e *Emitter) writeSequences(w io.Writer, res *synth.Result) {
	first := true
	for _, data := range res.Tables {
		t := data.Table
		if len(t.PrimaryKey) != 1 || len(data.Rows) == 0 {
			continue
		}
		col := t.Column(t.PrimaryKey[0])
		if col == nil || col.Type != model.TypeInteger {
			continue
		}
		if first {
			fmt.Fprint(w, "\n-- sequences\n")
			first = false
		}
		fmt.Fprintf(w, "SELECT setval(pg_get_serial_sequence(%s, %s), (SELECT max(%s) FROM %s));\n",
			pq.QuoteLiteral(pq.QuoteIdentifier(t.Name)), pq.QuoteLiteral(col.Name),
			pq.QuoteIdentifier(col.Name), pq.QuoteIdentifier(t.Name))
	}
}

// Insert builds one multi-row INSERT with inline literals.
func Insert(t *model.Table, rows []model.Row) (string, error) {
	columns := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = pq.QuoteIdentifier(c.Name)
	}

	stmt := sq.Insert(pq.QuoteIdentifier(t.Name)).Columns(columns...)
	for _, row := range rows {
		values := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			values[i] = sq.Expr(Literal(c.Type, row[c.Name]))
		}
		stmt = stmt.Values(values...)
	}

	sql, _, err := stmt.ToSql()
	if err != nil {
		return "", fmt.Errorf("unable to build insert for %s: %w", t.Name, err)
	}

	return sql, nil
}

// Update builds the statement that applies one fixup.
func Update(f synth.Fixup) (string, error) {
	stmt := sq.Update(pq.QuoteIdentifier(f.Table.Name))
	for _, c := range f.ForeignKey.Columns {
		stmt = stmt.Set(pq.QuoteIdentifier(c), sq.Expr(Literal(columnType(f.Table, c), f.Set[c])))
	}

	where := make([]string, len(f.Table.PrimaryKey))
	for i, c := range f.Table.PrimaryKey {
		where[i] = pq.QuoteIdentifier(c) + " = " + Literal(columnType(f.Table, c), f.Key[c])
	}
	stmt = stmt.Where(sq.Expr(strings.Join(where, " AND ")))

	sql, _, err := stmt.ToSql()
	if err != nil {
		return "", fmt.Errorf("unable to build update for %s: %w", f.Table.Name, err)
	}

	return sql, nil
}

func columnType(t *model.Table, name string) model.ColumnType {
	if c := t.Column(name); c != nil {
		return c.Type
	}

	return model.TypeUnknown
}
