package resolver

import (
	"fmt"
	"sort"

	"github.com/levtul/synthdb/model"
)

// edge is one foreign key seen as "owner depends on ref".
type edge struct {
	owner int
	ref   int
	fk    model.ForeignKey
}

// DependencyGraph indexes tables by extraction order. Self references are
// kept out of the edge lists since they never block ordering.
type DependencyGraph struct {
	tables []*model.Table
	index  map[string]int
	edges  []edge
	out    [][]int // owner -> edge ids
	in     [][]int // ref -> edge ids
}

func newDependencyGraph(tables []*model.Table) (*DependencyGraph, error) {
	g := &DependencyGraph{
		tables: tables,
		index:  make(map[string]int, len(tables)),
		out:    make([][]int, len(tables)),
		in:     make([][]int, len(tables)),
	}

	for i, t := range tables {
		if _, ok := g.index[t.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name)
		}
		g.index[t.Name] = i
	}

	for i, t := range tables {
		for _, fk := range t.ForeignKeys {
			if err := g.validate(t, fk); err != nil {
				return nil, err
			}
			if fk.IsSelf() {
				continue
			}

			id := len(g.edges)
			ref := g.index[fk.RefTable]
			g.edges = append(g.edges, edge{owner: i, ref: ref, fk: fk})
			g.out[i] = append(g.out[i], id)
			g.in[ref] = append(g.in[ref], id)
		}
	}

	return g, nil
}

func (g *DependencyGraph) validate(t *model.Table, fk model.ForeignKey) error {
	column := ""
	if len(fk.Columns) > 0 {
		column = fk.Columns[0]
	}
	dangling := func(reason string) error {
		return &DanglingForeignKeyError{Table: t.Name, Column: column, RefTable: fk.RefTable, Reason: reason}
	}

	ri, ok := g.index[fk.RefTable]
	if !ok {
		return dangling("referenced table does not exist")
	}
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
		return dangling("column count mismatch")
	}
	for _, c := range fk.Columns {
		if t.Column(c) == nil {
			column = c
			return dangling(fmt.Sprintf("column %s does not exist", c))
		}
	}

	ref := g.tables[ri]
	for _, c := range fk.RefColumns {
		if ref.Column(c) == nil {
			return dangling(fmt.Sprintf("referenced column %s.%s does not exist", fk.RefTable, c))
		}
	}

	return nil
}

// stronglyConnected returns the strongly connected components among the
// alive nodes using only alive edges (Tarjan). Components are sorted by
// their smallest member and members are in extraction order.
func (g *DependencyGraph) stronglyConnected(aliveNode []bool, aliveEdge []bool) [][]int {
	n := len(g.tables)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		stack   []int
		counter int
		comps   [][]int
	)

	var connect func(v int)
	connect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, id := range g.out[v] {
			if !aliveEdge[id] {
				continue
			}
			w := g.edges[id].ref
			if !aliveNode[w] {
				continue
			}
			if index[w] == -1 {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] == index[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			comps = append(comps, comp)
		}
	}

	for v := 0; v < n; v++ {
		if aliveNode[v] && index[v] == -1 {
			connect(v)
		}
	}

	for _, comp := range comps {
		sort.Ints(comp)
	}
	sort.Slice(comps, func(i, j int) bool {
		return comps[i][0] < comps[j][0]
	})

	return comps
}
