package resolver

import (
	"slices"

	"github.com/levtul/synthdb/model"
)

// Plan is the insertion order. For every non-self, non-deferred foreign key
// the referenced table precedes the owning table.
type Plan struct {
	Tables   []*model.Table
	Deferred []model.ForeignKey

	position map[string]int
	parents  map[string][]string
}

func newPlan(g *DependencyGraph, order []int, deferred []int) *Plan {
	p := &Plan{
		Tables:   make([]*model.Table, len(order)),
		position: make(map[string]int, len(order)),
		parents:  make(map[string][]string, len(order)),
	}
	for pos, v := range order {
		p.Tables[pos] = g.tables[v]
		p.position[g.tables[v].Name] = pos
	}

	skip := make(map[int]bool, len(deferred))
	for _, id := range deferred {
		skip[id] = true
		p.Deferred = append(p.Deferred, g.edges[id].fk)
	}

	for _, t := range p.Tables {
		var parents []string
		for _, id := range g.out[g.index[t.Name]] {
			ref := g.tables[g.edges[id].ref].Name
			if skip[id] || slices.Contains(parents, ref) {
				continue
			}
			parents = append(parents, ref)
		}
		slices.SortFunc(parents, func(a, b string) int {
			return p.position[a] - p.position[b]
		})
		p.parents[t.Name] = parents
	}

	return p
}

// Names returns the table names in insertion order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		names[i] = t.Name
	}

	return names
}

// Position returns the zero-based position of a table in the plan.
func (p *Plan) Position(name string) (int, bool) {
	pos, ok := p.position[name]
	return pos, ok
}

// DependsOn lists the tables name must follow, in plan order. Self
// references and deferred edges are not dependencies.
func (p *Plan) DependsOn(name string) []string {
	return p.parents[name]
}

func (p *Plan) IsDeferred(fk model.ForeignKey) bool {
	for _, d := range p.Deferred {
		if d.Table == fk.Table && d.RefTable == fk.RefTable && d.Name == fk.Name &&
			slices.Equal(d.Columns, fk.Columns) {
			return true
		}
	}

	return false
}

// DeferredFor returns the deferred edges owned by table.
func (p *Plan) DeferredFor(table string) []model.ForeignKey {
	var out []model.ForeignKey
	for _, d := range p.Deferred {
		if d.Table == table {
			out = append(out, d)
		}
	}

	return out
}

// Layers groups the plan into levels: a table sits one level above its
// deepest dependency, so tables inside a level never depend on each other.
// Tables keep their plan order inside a level.
func (p *Plan) Layers() [][]*model.Table {
	level := make(map[string]int, len(p.Tables))
	var layers [][]*model.Table
	for _, t := range p.Tables {
		l := 0
		for _, parent := range p.parents[t.Name] {
			l = max(l, level[parent]+1)
		}
		level[t.Name] = l
		for len(layers) <= l {
			layers = append(layers, nil)
		}
		layers[l] = append(layers[l], t)
	}

	return layers
}
