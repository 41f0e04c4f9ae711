package domain

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/resolver"
)

// WritePlan renders the insertion plan as a table: position, name, layer,
// row count, dependencies and deferred foreign keys.
func WritePlan(w io.Writer, plan *resolver.Plan, rowsFor func(*model.Table) int) {
	layer := map[string]int{}
	for i, l := range plan.Layers() {
		for _, t := range l {
			layer[t.Name] = i + 1
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Table", "Layer", "Rows", "Depends on", "Deferred"})

	for i, tbl := range plan.Tables {
		var deferred []string
		for _, fk := range plan.DeferredFor(tbl.Name) {
			deferred = append(deferred, strings.Join(fk.Columns, ",")+" -> "+fk.RefTable)
		}

		t.AppendRow(table.Row{
			i + 1,
			tbl.Name,
			layer[tbl.Name],
			rowsFor(tbl),
			strings.Join(plan.DependsOn(tbl.Name), ", "),
			strings.Join(deferred, ", "),
		})
	}

	t.Render()
}
