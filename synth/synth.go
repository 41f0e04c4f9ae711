// Package synth fills planned tables with synthetic rows. Every foreign key
// value is copied from a row generated earlier in the same run, so the rows
// load in plan order without constraint violations.
package synth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/resolver"
)

const (
	maxTriesCount = 10

	DefaultRows            = 1000
	DefaultSamplePercent   = 20
	DefaultNullProbability = 0.1
)

type Options struct {
	// Rows is the row count of tables without an override.
	Rows int
	// TableRows overrides Rows per table name.
	TableRows map[string]int
	// SamplePercent is the chance, 0..100, that an ordinary column reuses a
	// captured sample.
	SamplePercent int
	// NullProbability is the chance that a nullable ordinary column is NULL.
	NullProbability float64
	// Backfill produces fixups that set deferred foreign keys once every
	// table has rows.
	Backfill bool

	Rand *rand.Rand
	Now  time.Time
}

func DefaultOptions() Options {
	return Options{
		Rows:            DefaultRows,
		SamplePercent:   DefaultSamplePercent,
		NullProbability: DefaultNullProbability,
	}
}

type TableData struct {
	Table *model.Table
	Rows  []model.Row
}

// Fixup sets a deferred foreign key on a row identified by its primary key.
type Fixup struct {
	Table      *model.Table
	ForeignKey model.ForeignKey
	Key        model.Row
	Set        model.Row
}

type Result struct {
	// Tables follows the plan order.
	Tables []TableData
	Fixups []Fixup
	Pools  *Pools
}

// RowCount returns the number of generated rows over all tables.
func (r *Result) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}

	return n
}

type Generator struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Generator {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	opts.SamplePercent = ClampPercent(opts.SamplePercent)
	opts.NullProbability = min(max(opts.NullProbability, 0), 1)
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Generator{opts: opts, logger: logger}
}

// RowsFor returns how many rows t gets: the per-table override, then the
// count declared on the table, then the run default.
func (g *Generator) RowsFor(t *model.Table) int {
	if n, ok := g.opts.TableRows[t.Name]; ok {
		return max(n, 0)
	}
	if t.Rows > 0 {
		return t.Rows
	}

	return max(g.opts.Rows, 0)
}

// Generate produces rows for every table of the plan, strictly in plan
// order. The context is checked between tables; on any error no partial
// result is returned.
func (g *Generator) Generate(ctx context.Context, plan *resolver.Plan) (*Result, error) {
	res := &Result{Pools: NewPools()}
	referenced := referencedColumns(plan.Tables)

	for _, t := range plan.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pool, err := res.Pools.Create(t.Name, poolColumns(t, referenced[t.Name]))
		if err != nil {
			return nil, err
		}

		run := newTableRun(g, plan, res.Pools, t, pool)
		rows, fixups, err := run.generate(g.RowsFor(t))
		if err != nil {
			return nil, err
		}
		pool.Freeze()

		res.Tables = append(res.Tables, TableData{Table: t, Rows: rows})
		res.Fixups = append(res.Fixups, fixups...)
		g.logger.Debug("table generated", slog.String("table", t.Name), slog.Int("rows", len(rows)))
	}

	if g.opts.Backfill {
		res.Fixups = g.backfill(res.Pools, res.Fixups)
		g.logger.Debug("deferred keys backfilled", slog.Int("fixups", len(res.Fixups)))
	}

	return res, nil
}

// backfill points every fixup at a random row of the now complete referenced
// table. Fixups whose referenced table stayed empty are dropped.
func (g *Generator) backfill(pools *Pools, fixups []Fixup) []Fixup {
	pickers := map[string]*picker{}
	out := fixups[:0]
	for _, f := range fixups {
		pool := pools.Get(f.ForeignKey.RefTable)
		if pool == nil || pool.Len() == 0 {
			continue
		}

		idx := g.opts.Rand.Intn(pool.Len())
		if f.Table.IsUniqueSet(f.ForeignKey.Columns) {
			key := f.ForeignKey.String()
			if pickers[key] == nil {
				pickers[key] = newPicker(g.opts.Rand, pool.Len())
			}
			var ok bool
			if idx, ok = pickers[key].next(); !ok {
				continue
			}
			pickers[key].commit()
		}

		ref := pool.Row(idx)
		f.Set = make(model.Row, len(f.ForeignKey.Columns))
		for i, c := range f.ForeignKey.Columns {
			f.Set[c] = ref[f.ForeignKey.RefColumns[i]]
		}
		out = append(out, f)
	}

	return out
}

// referencedColumns maps a table name to the columns other foreign keys
// point at.
func referencedColumns(tables []*model.Table) map[string][]string {
	out := map[string][]string{}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			out[fk.RefTable] = append(out[fk.RefTable], fk.RefColumns...)
		}
	}

	return out
}

func poolColumns(t *model.Table, referenced []string) []string {
	columns := t.KeyColumns()
	for _, c := range referenced {
		if !containsString(columns, c) {
			columns = append(columns, c)
		}
	}

	return columns
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

// picker draws pool indexes without replacement. next hands out the same
// index until commit consumes it.
type picker struct {
	order []int
	pos   int
	drawn bool
}

func newPicker(r *rand.Rand, n int) *picker {
	return &picker{order: r.Perm(n)}
}

func (p *picker) next() (int, bool) {
	if p.pos >= len(p.order) {
		return 0, false
	}
	p.drawn = true

	return p.order[p.pos], true
}

func (p *picker) commit() {
	if p.drawn {
		p.pos++
		p.drawn = false
	}
}

// tableRun holds the state of one table while its rows are generated.
type tableRun struct {
	*Generator
	plan  *resolver.Plan
	pools *Pools
	table *model.Table
	pool  *KeyPool

	keys     []*model.Column
	ordinary []*model.Column
	foreign  []model.ForeignKey
	self     []model.ForeignKey

	counters map[string]int64
	sets     [][]string
	seen     []map[string]bool
	pickers  map[int]*picker
}

func newTableRun(g *Generator, plan *resolver.Plan, pools *Pools, t *model.Table, pool *KeyPool) *tableRun {
	run := &tableRun{
		Generator: g,
		plan:      plan,
		pools:     pools,
		table:     t,
		pool:      pool,
		counters:  map[string]int64{},
		sets:      t.UniqueSets(),
		pickers:   map[int]*picker{},
	}
	run.seen = make([]map[string]bool, len(run.sets))
	for i := range run.seen {
		run.seen[i] = map[string]bool{}
	}

	for _, c := range t.Columns {
		if _, owned := t.ForeignKeyFor(c.Name); owned {
			continue
		}
		if t.IsPrimaryKey(c.Name) {
			run.keys = append(run.keys, c)
		} else {
			run.ordinary = append(run.ordinary, c)
		}
	}
	for _, fk := range t.ForeignKeys {
		if fk.IsSelf() {
			run.self = append(run.self, fk)
		} else {
			run.foreign = append(run.foreign, fk)
		}
	}

	return run
}

func (run *tableRun) generate(n int) ([]model.Row, []Fixup, error) {
	rows := make([]model.Row, 0, n)
	var fixups []Fixup
	for i := 0; i < n; i++ {
		var (
			row       model.Row
			nulled    []model.ForeignKey
			generated bool
		)
		for try := 0; try < maxTriesCount && !generated; try++ {
			candidate, deferred, err := run.row()
			if err != nil {
				return nil, nil, err
			}
			if !run.unique(candidate) {
				continue
			}
			row, nulled, generated = candidate, deferred, true
		}
		if !generated {
			return nil, nil, &GenerationError{
				Table:  run.table.Name,
				Reason: fmt.Sprintf("unable to generate a unique row in %d tries", maxTriesCount),
			}
		}

		for _, p := range run.pickers {
			p.commit()
		}
		run.remember(row)
		if err := run.pool.Append(row); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)

		if run.opts.Backfill && len(run.table.PrimaryKey) > 0 {
			for _, fk := range nulled {
				fixups = append(fixups, Fixup{Table: run.table, ForeignKey: fk, Key: project(row, run.table.PrimaryKey)})
			}
		}
	}

	return rows, fixups, nil
}

// row builds one candidate row: key columns, ordinary columns, foreign keys
// to other tables, then self references. It also returns the deferred
// foreign keys left NULL.
func (run *tableRun) row() (model.Row, []model.ForeignKey, error) {
	r := run.opts.Rand
	for _, p := range run.pickers {
		p.drawn = false
	}
	row := make(model.Row, len(run.table.Columns))
	for _, c := range run.keys {
		row[c.Name] = run.nextKey(c)
	}
	for _, c := range run.ordinary {
		row[c.Name], _ = Blend(c, run.opts.SamplePercent, run.opts.NullProbability, r, run.opts.Now)
	}

	var nulled []model.ForeignKey
	for i, fk := range run.foreign {
		if run.plan.IsDeferred(fk) {
			if !run.referenceDeferred(row, i, fk) {
				nulled = append(nulled, fk)
			}
			continue
		}
		if err := run.reference(row, i, fk); err != nil {
			return nil, nil, err
		}
	}
	for _, fk := range run.self {
		if err := run.referenceSelf(row, fk); err != nil {
			return nil, nil, err
		}
	}

	return row, nulled, nil
}

func (run *tableRun) nextKey(c *model.Column) any {
	switch c.Type {
	case model.TypeInteger:
		run.counters[c.Name]++
		return run.counters[c.Name]
	case model.TypeUUID:
		return newUUID(run.opts.Rand)
	case model.TypeText:
		run.counters[c.Name]++
		n := run.counters[c.Name]
		s := fmt.Sprintf("%s_%d", run.table.Name, n)
		if c.MaxLength > 0 && len(s) > c.MaxLength {
			s = strconv.FormatInt(n, 10)
		}
		return s
	}

	if c.Hint != nil {
		if v := c.Hint.Generate(run.opts.Rand); v != nil {
			return v
		}
	}

	return Synthesize(c, run.opts.Rand, run.opts.Now)
}

func (run *tableRun) reference(row model.Row, i int, fk model.ForeignKey) error {
	pool := run.pools.Get(fk.RefTable)
	idx, ok := run.pick(i, fk, pool)
	if ok {
		assign(row, fk, pool.Row(idx))
		return nil
	}

	if run.table.Nullable(fk) {
		setNull(row, fk)
		return nil
	}

	reason := fmt.Sprintf("referenced table %s has no rows", fk.RefTable)
	if pool != nil && pool.Len() > 0 {
		reason = fmt.Sprintf("every row of %s is already referenced through a unique key", fk.RefTable)
	}

	return &GenerationError{Table: run.table.Name, Column: strings.Join(fk.Columns, ","), Reason: reason}
}

// pick draws one referenced row. A foreign key whose columns are unique in
// the owning table draws without replacement.
func (run *tableRun) pick(i int, fk model.ForeignKey, pool *KeyPool) (int, bool) {
	if pool == nil || pool.Len() == 0 {
		return 0, false
	}
	if !run.table.IsUniqueSet(fk.Columns) {
		return run.opts.Rand.Intn(pool.Len()), true
	}

	if run.pickers[i] == nil {
		run.pickers[i] = newPicker(run.opts.Rand, pool.Len())
	}

	return run.pickers[i].next()
}

// referenceDeferred fills a deferred foreign key only when its referenced
// table is already complete, and reports whether the value is final. A
// unique reference that ran out of rows stays NULL and is never backfilled.
func (run *tableRun) referenceDeferred(row model.Row, i int, fk model.ForeignKey) bool {
	pool := run.pools.Get(fk.RefTable)
	if pool == nil || !pool.Frozen() || pool.Len() == 0 {
		setNull(row, fk)
		return false
	}

	idx, ok := run.pick(i, fk, pool)
	if !ok {
		setNull(row, fk)
		return true
	}
	assign(row, fk, pool.Row(idx))

	return true
}

// referenceSelf points at an earlier row of the same batch. The first row of
// a NOT NULL self reference points at itself.
func (run *tableRun) referenceSelf(row model.Row, fk model.ForeignKey) error {
	if n := run.pool.Len(); n > 0 {
		assign(row, fk, run.pool.Row(run.opts.Rand.Intn(n)))
		return nil
	}
	if run.table.Nullable(fk) {
		setNull(row, fk)
		return nil
	}

	for i, c := range fk.Columns {
		v := row[fk.RefColumns[i]]
		if v == nil {
			return &GenerationError{Table: run.table.Name, Column: c, Reason: "no earlier row to reference"}
		}
		row[c] = v
	}

	return nil
}

func (run *tableRun) unique(row model.Row) bool {
	for i, set := range run.sets {
		if key, ok := uniqueKey(row, set); ok && run.seen[i][key] {
			return false
		}
	}

	return true
}

func (run *tableRun) remember(row model.Row) {
	for i, set := range run.sets {
		if key, ok := uniqueKey(row, set); ok {
			run.seen[i][key] = true
		}
	}
}

// uniqueKey renders the values of set; rows with a NULL in the set never
// conflict.
func uniqueKey(row model.Row, set []string) (string, bool) {
	var b strings.Builder
	for _, c := range set {
		v := row[c]
		if v == nil {
			return "", false
		}
		fmt.Fprintf(&b, "%v\x00", v)
	}

	return b.String(), true
}

// assign copies referenced values into the owning columns. A column owned by
// two overlapping foreign keys keeps the first value.
func assign(row model.Row, fk model.ForeignKey, ref model.Row) {
	for i, c := range fk.Columns {
		if _, set := row[c]; !set {
			row[c] = ref[fk.RefColumns[i]]
		}
	}
}

func setNull(row model.Row, fk model.ForeignKey) {
	for _, c := range fk.Columns {
		if _, set := row[c]; !set {
			row[c] = nil
		}
	}
}

func project(row model.Row, columns []string) model.Row {
	out := make(model.Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}

	return out
}
