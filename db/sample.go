package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/levtul/synthdb/model"
)

const (
	DefaultSampleSize  = 100
	DefaultConcurrency = 4
)

// Sampler captures real values of ordinary columns. Key and foreign key
// columns are never sampled.
type Sampler struct {
	db          *sql.DB
	sampleSize  int
	concurrency int
	logger      *slog.Logger
}

func NewSampler(db *sql.DB, sampleSize, concurrency int, logger *slog.Logger) *Sampler {
	if sampleSize < 0 {
		sampleSize = 0
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Sampler{db: db, sampleSize: sampleSize, concurrency: concurrency, logger: logger}
}

// Sample fills Column.Samples, querying up to concurrency tables at a time.
// Each goroutine only touches its own table.
func (s *Sampler) Sample(ctx context.Context, schema string, tables []*model.Table) error {
	if s.sampleSize == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range tables {
		t := t
		g.Go(func() error {
			return s.sampleTable(ctx, schema, t)
		})
	}

	return g.Wait()
}

func sampledColumns(t *model.Table) []*model.Column {
	keys := map[string]bool{}
	for _, c := range t.KeyColumns() {
		keys[c] = true
	}

	var columns []*model.Column
	for _, c := range t.Columns {
		if _, isFK := t.ForeignKeyFor(c.Name); isFK || keys[c.Name] || c.Type == model.TypeUnknown {
			continue
		}
		columns = append(columns, c)
	}

	return columns
}

func (s *Sampler) sampleTable(ctx context.Context, schema string, t *model.Table) error {
	columns := sampledColumns(t)
	if len(columns) == 0 {
		return nil
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pq.QuoteIdentifier(c.Name)
	}

	query, args, err := psql.
		Select(names...).
		From(pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(t.Name)).
		Limit(uint64(s.sampleSize)).
		ToSql()
	if err != nil {
		return fmt.Errorf("unable to build sample query for %s: %w", t.Name, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unable to sample %s: %w", t.Name, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("unable to scan sample of %s: %w", t.Name, err)
		}
		for i, v := range values {
			if v == nil {
				continue
			}
			if b, ok := v.([]byte); ok {
				if columns[i].Type == model.TypeBytes {
					v = append([]byte(nil), b...)
				} else {
					v = string(b)
				}
			}
			columns[i].Samples = append(columns[i].Samples, v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("unable to read sample of %s: %w", t.Name, err)
	}

	s.logger.Debug("table sampled", slog.String("table", t.Name), slog.Int("columns", len(columns)))

	return nil
}
