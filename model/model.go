package model

import "strings"

// ColumnType is the declared type family of a column.
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeText
	TypeDate
	TypeTime
	TypeTimestamp
	TypeInterval
	TypeUUID
	TypeJSON
	TypeBytes
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeText:
		return "text"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	case TypeInterval:
		return "interval"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	case TypeBytes:
		return "bytes"
	}

	return "unknown"
}

type Column struct {
	Name      string
	Type      ColumnType
	Nullable  bool
	MaxLength int

	// Samples holds real non-null values captured during extraction.
	Samples []any
	Hint    Hint
}

// ForeignKey is one foreign key constraint. Columns and RefColumns are
// parallel; a single-column key has one entry in each.
type ForeignKey struct {
	Name       string
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
}

func (fk ForeignKey) IsSelf() bool {
	return fk.Table == fk.RefTable
}

// String renders the edge as table.col -> ref.col.
func (fk ForeignKey) String() string {
	return fk.Table + "." + strings.Join(fk.Columns, ",") + " -> " + fk.RefTable + "." + strings.Join(fk.RefColumns, ",")
}

type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []string
	Unique      [][]string
	ForeignKeys []ForeignKey

	// Rows overrides the run's row count when positive.
	Rows int
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

func (t *Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}

	return false
}

// ForeignKeyFor returns the first foreign key owning the column.
func (t *Table) ForeignKeyFor(column string) (ForeignKey, bool) {
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if c == column {
				return fk, true
			}
		}
	}

	return ForeignKey{}, false
}

// Nullable reports whether every owning column of fk accepts NULL.
func (t *Table) Nullable(fk ForeignKey) bool {
	for _, name := range fk.Columns {
		c := t.Column(name)
		if c == nil || !c.Nullable {
			return false
		}
	}

	return true
}

// UniqueSets returns the primary key followed by every unique constraint.
func (t *Table) UniqueSets() [][]string {
	sets := make([][]string, 0, len(t.Unique)+1)
	if len(t.PrimaryKey) > 0 {
		sets = append(sets, t.PrimaryKey)
	}

	return append(sets, t.Unique...)
}

// KeyColumns lists the columns other tables may reference: primary key
// columns first, then columns of unique constraints, without duplicates.
func (t *Table) KeyColumns() []string {
	seen := map[string]bool{}
	var keys []string
	for _, set := range t.UniqueSets() {
		for _, c := range set {
			if !seen[c] {
				seen[c] = true
				keys = append(keys, c)
			}
		}
	}

	return keys
}

// IsUniqueSet reports whether columns, in any order, exactly match the
// primary key or a unique constraint.
func (t *Table) IsUniqueSet(columns []string) bool {
	for _, set := range t.UniqueSets() {
		if sameColumns(set, columns) {
			return true
		}
	}

	return false
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	in := make(map[string]bool, len(a))
	for _, c := range a {
		in[c] = true
	}
	for _, c := range b {
		if !in[c] {
			return false
		}
	}

	return true
}

// Row maps a column name to its generated value; nil is SQL NULL.
type Row map[string]any
