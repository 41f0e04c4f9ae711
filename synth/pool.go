package synth

import (
	"errors"
	"fmt"

	"github.com/levtul/synthdb/model"
)

var ErrPoolFrozen = errors.New("key pool is frozen")

// KeyPool holds the key values of every generated row of one table, in
// generation order. It only grows while its table is generated and is frozen
// once the table completes.
type KeyPool struct {
	table   string
	columns []string
	rows    [][]any
	frozen  bool
}

func (p *KeyPool) Table() string     { return p.table }
func (p *KeyPool) Columns() []string { return p.columns }
func (p *KeyPool) Len() int          { return len(p.rows) }
func (p *KeyPool) Frozen() bool      { return p.frozen }

// Row returns the key values of the i-th generated row.
func (p *KeyPool) Row(i int) model.Row {
	row := make(model.Row, len(p.columns))
	for j, c := range p.columns {
		row[c] = p.rows[i][j]
	}

	return row
}

// Values returns every recorded value of one key column.
func (p *KeyPool) Values(column string) []any {
	j := -1
	for i, c := range p.columns {
		if c == column {
			j = i
		}
	}
	if j < 0 {
		return nil
	}

	out := make([]any, len(p.rows))
	for i, r := range p.rows {
		out[i] = r[j]
	}

	return out
}

func (p *KeyPool) Append(row model.Row) error {
	if p.frozen {
		return fmt.Errorf("%w: %s", ErrPoolFrozen, p.table)
	}

	values := make([]any, len(p.columns))
	for i, c := range p.columns {
		values[i] = row[c]
	}
	p.rows = append(p.rows, values)

	return nil
}

func (p *KeyPool) Freeze() {
	p.frozen = true
}

// Pools is the per-run registry of key pools. Pools are never evicted: a
// table placed late in the plan may still reference the first one.
type Pools struct {
	byTable map[string]*KeyPool
}

func NewPools() *Pools {
	return &Pools{byTable: map[string]*KeyPool{}}
}

// Create registers an empty pool for table.
func (ps *Pools) Create(table string, columns []string) (*KeyPool, error) {
	if _, ok := ps.byTable[table]; ok {
		return nil, fmt.Errorf("key pool for %s already exists", table)
	}

	p := &KeyPool{table: table, columns: columns}
	ps.byTable[table] = p

	return p, nil
}

// Get returns the pool of table, or nil when the table was not generated yet.
func (ps *Pools) Get(table string) *KeyPool {
	return ps.byTable[table]
}
