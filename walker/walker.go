package walker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
	"github.com/auxten/postgresql-parser/pkg/sql/types"

	"github.com/levtul/synthdb/model"
)

const defaultSchema = "public"

// Walker collects the tables of one schema from parsed DDL statements.
// Tables keep their declaration order.
type Walker struct {
	Schema   string
	Tables   []*model.Table
	Errs     []error
	Warnings []error

	schemas map[string]bool
	tables  map[string]*model.Table
}

func NewWalker(schema string) *Walker {
	if schema == "" {
		schema = defaultSchema
	}

	return &Walker{
		Schema:  schema,
		schemas: map[string]bool{},
		tables:  map[string]*model.Table{},
	}
}

func (w *Walker) GetWalkFunc(expr string) func(ctx any, node any) (stop bool) {
	return func(ctx any, node any) (stop bool) {
		switch n := node.(type) {
		case *tree.CreateSchema:
			if w.schemas[n.Schema] {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \nschema %s already declared", expr, n.Schema))
				return false
			}
			w.schemas[n.Schema] = true
		case *tree.CreateTable:
			if !w.inSchema(expr, n.Table.Schema(), n.Table.Table()) {
				return false
			}
			w.createTable(expr, n)
		case *tree.AlterTable:
			tableName := n.Table.ToTableName()
			s := tableName.SchemaName.String()
			if s == `""` {
				s = ""
			}
			if !w.inSchema(expr, s, string(tableName.TableName)) {
				return false
			}

			table, ok := w.tables[string(tableName.TableName)]
			if !ok {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \ntable %s not found", expr, tableName.TableName.String()))
				return false
			}
			w.alterTable(expr, table, n)
		case *tree.CreateIndex:
			if !n.Unique || !w.inSchema(expr, n.Table.Schema(), n.Table.Table()) {
				return false
			}

			table, ok := w.tables[n.Table.Table()]
			if !ok {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \ntable %s not found", expr, n.Table.Table()))
				return false
			}
			columns := make([]string, 0, len(n.Columns))
			for _, elem := range n.Columns {
				columns = append(columns, string(elem.Column))
			}
			table.Unique = append(table.Unique, columns)
		}

		return false
	}
}

// Finish applies what needs every statement: implicit foreign key targets
// resolve to the referenced primary key, and primary key columns are NOT
// NULL.
func (w *Walker) Finish() {
	for _, table := range w.Tables {
		for _, name := range table.PrimaryKey {
			if c := table.Column(name); c != nil {
				c.Nullable = false
			}
		}

		for i, fk := range table.ForeignKeys {
			if len(fk.RefColumns) > 0 {
				continue
			}
			// A missing target is left for the resolver to report.
			ref, ok := w.tables[fk.RefTable]
			if !ok {
				continue
			}
			if len(ref.PrimaryKey) == 0 {
				w.Errs = append(w.Errs, fmt.Errorf("foreign key %s of table %s: referenced table %s has no primary key", fk.Name, table.Name, fk.RefTable))
				continue
			}
			table.ForeignKeys[i].RefColumns = append([]string(nil), ref.PrimaryKey...)
		}
	}
}

func (w *Walker) inSchema(expr, schema, table string) bool {
	if schema == "" {
		schema = defaultSchema
	}
	if schema != defaultSchema && schema != w.Schema && !w.schemas[schema] {
		w.Errs = append(w.Errs, fmt.Errorf("%s: \nschema %s not found", expr, schema))
		return false
	}
	if schema != w.Schema {
		w.Warnings = append(w.Warnings, fmt.Errorf("table %s.%s is outside schema %s and will be ignored", schema, table, w.Schema))
		return false
	}

	return true
}

func (w *Walker) createTable(expr string, n *tree.CreateTable) {
	name := n.Table.Table()
	if _, ok := w.tables[name]; ok {
		w.Errs = append(w.Errs, fmt.Errorf("%s: \ntable %s already declared", expr, name))
		return
	}

	table := &model.Table{Name: name}
	w.tables[name] = table
	w.Tables = append(w.Tables, table)

	n.HoistConstraints()

	for _, def := range n.Defs {
		switch d := def.(type) {
		case *tree.ColumnTableDef:
			if err := w.addColumn(expr, table, d); err != nil {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \n%s", expr, err))
				return
			}
		case *tree.UniqueConstraintTableDef:
			w.addUnique(table, d)
		case *tree.ForeignKeyConstraintTableDef:
			w.addForeignKey(table, d)
		case *tree.CheckConstraintTableDef:
			w.Warnings = append(w.Warnings, fmt.Errorf("%s: \ncheck constraints are not supported, generated rows may violate them", expr))
		}
	}

	if str := GetNthGroup(expr, CreateTableCommentReg, 1); str != "" {
		table.Rows, _ = strconv.Atoi(str)
	}
}

func (w *Walker) alterTable(expr string, table *model.Table, n *tree.AlterTable) {
	for _, cmd := range n.Cmds {
		switch c := cmd.(type) {
		case *tree.AlterTableAddConstraint:
			switch d := c.ConstraintDef.(type) {
			case *tree.UniqueConstraintTableDef:
				w.addUnique(table, d)
			case *tree.ForeignKeyConstraintTableDef:
				w.addForeignKey(table, d)
			case *tree.CheckConstraintTableDef:
				w.Warnings = append(w.Warnings, fmt.Errorf("%s: \ncheck constraints are not supported, generated rows may violate them", expr))
			}
		case *tree.AlterTableAddColumn:
			if err := w.addColumn(expr, table, c.ColumnDef); err != nil {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \n%s", expr, err))
				return
			}
		case *tree.AlterTableSetNotNull:
			column := table.Column(string(c.Column))
			if column == nil {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \ncolumn %s not found", expr, c.Column.String()))
				return
			}
			column.Nullable = false
		case *tree.AlterTableDropNotNull:
			column := table.Column(string(c.Column))
			if column == nil {
				w.Errs = append(w.Errs, fmt.Errorf("%s: \ncolumn %s not found", expr, c.Column.String()))
				return
			}
			column.Nullable = true
		case *tree.AlterTableAlterPrimaryKey:
			table.PrimaryKey = make([]string, 0, len(c.Columns))
			for _, column := range c.Columns {
				table.PrimaryKey = append(table.PrimaryKey, string(column.Column))
			}
		}
	}
}

func (w *Walker) addColumn(expr string, table *model.Table, d *tree.ColumnTableDef) error {
	name := string(d.Name)
	if table.Column(name) != nil {
		return fmt.Errorf("column %s.%s already declared", table.Name, name)
	}

	typ, maxLength := ColumnType(d.Type)
	col := &model.Column{
		Name:      name,
		Type:      typ,
		Nullable:  d.Nullable.Nullability != tree.NotNull && !d.PrimaryKey.IsPrimaryKey,
		MaxLength: maxLength,
	}
	if typ == model.TypeUnknown {
		w.Warnings = append(w.Warnings, fmt.Errorf("column %s.%s has unsupported type %s", table.Name, name, d.Type.SQLString()))
	}
	table.Columns = append(table.Columns, col)

	if d.PrimaryKey.IsPrimaryKey {
		table.PrimaryKey = append(table.PrimaryKey, name)
	}
	if d.Unique && !d.PrimaryKey.IsPrimaryKey {
		table.Unique = append(table.Unique, []string{name})
	}

	if val := GetNthGroup(expr, GetColumnCommentReg(name), 2); val != "" {
		hint, err := model.NewHintFromString(val, typ)
		if err != nil {
			return fmt.Errorf("column %s.%s: %w", table.Name, name, err)
		}
		col.Hint = hint
	}

	return nil
}

func (w *Walker) addUnique(table *model.Table, d *tree.UniqueConstraintTableDef) {
	columns := make([]string, 0, len(d.Columns))
	for _, column := range d.Columns {
		columns = append(columns, string(column.Column))
	}

	if d.PrimaryKey {
		table.PrimaryKey = columns
		return
	}
	table.Unique = append(table.Unique, columns)
}

func (w *Walker) addForeignKey(table *model.Table, d *tree.ForeignKeyConstraintTableDef) {
	columns := d.FromCols.ToStrings()
	name := string(d.Name)
	if name == "" {
		name = fmt.Sprintf("%s_%s_fkey", table.Name, strings.Join(columns, "_"))
	}

	// an inline REFERENCES without a column list hoists to a single empty name
	refColumns := d.ToCols.ToStrings()
	if len(refColumns) == 1 && refColumns[0] == "" {
		refColumns = nil
	}

	table.ForeignKeys = append(table.ForeignKeys, model.ForeignKey{
		Name:       name,
		Table:      table.Name,
		Columns:    columns,
		RefTable:   d.Table.Table(),
		RefColumns: refColumns,
	})
}

// ColumnType maps a parsed SQL type to its family and maximum length.
func ColumnType(t *types.T) (model.ColumnType, int) {
	switch t.Family() {
	case types.IntFamily:
		return model.TypeInteger, 0
	case types.FloatFamily, types.DecimalFamily:
		return model.TypeFloat, 0
	case types.BoolFamily:
		return model.TypeBoolean, 0
	case types.StringFamily, types.CollatedStringFamily:
		return model.TypeText, int(t.Width())
	case types.DateFamily:
		return model.TypeDate, 0
	case types.TimeFamily, types.TimeTZFamily:
		return model.TypeTime, 0
	case types.TimestampFamily, types.TimestampTZFamily:
		return model.TypeTimestamp, 0
	case types.IntervalFamily:
		return model.TypeInterval, 0
	case types.UuidFamily:
		return model.TypeUUID, 0
	case types.JsonFamily:
		return model.TypeJSON, 0
	case types.BytesFamily:
		return model.TypeBytes, 0
	}

	return model.TypeUnknown, 0
}
