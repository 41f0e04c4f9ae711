// Package resolver orders tables so that every table follows the tables it
// references, breaking foreign key cycles on nullable edges.
package resolver

import (
	"container/heap"
	"slices"

	"github.com/levtul/synthdb/model"
)

// Resolve validates the tables and returns an insertion plan. Tables that
// become eligible at the same time keep their relative input order, so the
// same input always yields the same plan.
func Resolve(tables []*model.Table) (*Plan, error) {
	g, err := newDependencyGraph(tables)
	if err != nil {
		return nil, err
	}

	n := len(tables)
	pending := make([]int, n)
	aliveNode := make([]bool, n)
	aliveEdge := make([]bool, len(g.edges))
	for i := range aliveEdge {
		aliveEdge[i] = true
	}

	ready := &indexHeap{}
	for i := range tables {
		aliveNode[i] = true
		pending[i] = len(g.out[i])
		if pending[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, n)
	var deferred []int
	for len(order) < n {
		if ready.Len() == 0 {
			id, err := g.breakCycle(aliveNode, aliveEdge)
			if err != nil {
				return nil, err
			}
			aliveEdge[id] = false
			deferred = append(deferred, id)
			if owner := g.edges[id].owner; pendingDone(pending, owner) {
				heap.Push(ready, owner)
			}
			continue
		}

		v := heap.Pop(ready).(int)
		aliveNode[v] = false
		order = append(order, v)
		for _, id := range g.in[v] {
			if !aliveEdge[id] {
				continue
			}
			aliveEdge[id] = false
			if owner := g.edges[id].owner; pendingDone(pending, owner) {
				heap.Push(ready, owner)
			}
		}
	}

	return newPlan(g, order, deferred), nil
}

func pendingDone(pending []int, v int) bool {
	pending[v]--
	return pending[v] == 0
}

// breakCycle picks the edge to defer when no table is ready: the first
// nullable edge, by owner extraction order then declaration order, inside
// the earliest strongly connected component.
func (g *DependencyGraph) breakCycle(aliveNode, aliveEdge []bool) (int, error) {
	for _, comp := range g.stronglyConnected(aliveNode, aliveEdge) {
		if len(comp) < 2 {
			continue
		}

		for _, owner := range comp {
			t := g.tables[owner]
			for _, id := range g.out[owner] {
				e := g.edges[id]
				if aliveEdge[id] && slices.Contains(comp, e.ref) && t.Nullable(e.fk) {
					return id, nil
				}
			}
		}

		names := make([]string, len(comp))
		for i, v := range comp {
			names[i] = g.tables[v].Name
		}
		return 0, &CyclicDependencyError{Tables: names}
	}

	// Unreachable while some node is alive: a stalled Kahn pass always
	// leaves at least one non-trivial component.
	return 0, &CyclicDependencyError{}
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]
	return v
}
