package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq/oid"

	"github.com/levtul/synthdb/model"
)

// varcharHeader is the length header PostgreSQL adds to atttypmod.
const varcharHeader = 4

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Catalog reads table metadata from pg_catalog.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCatalog(db *sql.DB, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Catalog{db: db, logger: logger}
}

// Tables returns every ordinary and partitioned table of schema, ordered by
// name, with columns, keys and foreign keys.
func (c *Catalog) Tables(ctx context.Context, schema string) ([]*model.Table, error) {
	enums, err := c.enums(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := c.columns(ctx, schema, enums)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrEmptySchema, schema)
	}

	byName := make(map[string]*model.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	if err := c.keys(ctx, schema, byName); err != nil {
		return nil, err
	}
	if err := c.foreignKeys(ctx, schema, byName); err != nil {
		return nil, err
	}

	c.logger.Debug("catalog read", slog.String("schema", schema), slog.Int("tables", len(tables)))

	return tables, nil
}

func (c *Catalog) query(ctx context.Context, b sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("unable to build catalog query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query catalog: %w", err)
	}

	return rows, nil
}

// enums maps an enum type oid to its labels in sort order.
func (c *Catalog) enums(ctx context.Context) (map[int64][]any, error) {
	rows, err := c.query(ctx, psql.
		Select("e.enumtypid::int8", "e.enumlabel").
		From("pg_catalog.pg_enum e").
		OrderBy("e.enumtypid", "e.enumsortorder"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	enums := map[int64][]any{}
	for rows.Next() {
		var (
			typID int64
			label string
		)
		if err := rows.Scan(&typID, &label); err != nil {
			return nil, fmt.Errorf("unable to scan enum label: %w", err)
		}
		enums[typID] = append(enums[typID], label)
	}

	return enums, rows.Err()
}

func (c *Catalog) columns(ctx context.Context, schema string, enums map[int64][]any) ([]*model.Table, error) {
	rows, err := c.query(ctx, psql.
		Select("cl.relname", "a.attname", "a.atttypid::int8", "a.attnotnull", "a.atttypmod", "t.typtype::text").
		From("pg_catalog.pg_attribute a").
		Join("pg_catalog.pg_class cl ON cl.oid = a.attrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = cl.relnamespace").
		Join("pg_catalog.pg_type t ON t.oid = a.atttypid").
		Where(sq.Eq{"n.nspname": schema}).
		Where("cl.relkind IN ('r', 'p')").
		Where("a.attnum > 0").
		Where("NOT a.attisdropped").
		OrderBy("cl.relname", "a.attnum"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []*model.Table
	var current *model.Table
	for rows.Next() {
		var (
			tableName, columnName, typType string
			typID, typMod                  int64
			notNull                        bool
		)
		if err := rows.Scan(&tableName, &columnName, &typID, &notNull, &typMod, &typType); err != nil {
			return nil, fmt.Errorf("unable to scan column: %w", err)
		}

		if current == nil || current.Name != tableName {
			current = &model.Table{Name: tableName}
			tables = append(tables, current)
		}

		col := &model.Column{
			Name:     columnName,
			Nullable: !notNull,
		}
		col.Type, col.MaxLength = ColumnType(oid.Oid(typID), typMod)
		if labels, ok := enums[typID]; ok && typType == "e" {
			col.Type = model.TypeText
			col.Hint = model.NewOneOf(model.TypeText, labels...)
		}
		if col.Type == model.TypeUnknown {
			c.logger.Warn("unsupported column type", slog.String("table", tableName), slog.String("column", columnName), slog.Int64("oid", typID))
		}
		current.Columns = append(current.Columns, col)
	}

	return tables, rows.Err()
}

// keys fills primary keys and unique constraints.
func (c *Catalog) keys(ctx context.Context, schema string, tables map[string]*model.Table) error {
	rows, err := c.query(ctx, psql.
		Select("cl.relname", "con.conname", "con.contype::text", "a.attname").
		From("pg_catalog.pg_constraint con").
		Join("pg_catalog.pg_class cl ON cl.oid = con.conrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = cl.relnamespace").
		JoinClause("CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)").
		Join("pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum").
		Where(sq.Eq{"n.nspname": schema}).
		Where("con.contype IN ('p', 'u')").
		OrderBy("cl.relname", "con.conname", "k.ord"))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	type key struct{ table, name string }
	unique := map[key][]string{}
	var order []key
	for rows.Next() {
		var tableName, name, kind, column string
		if err := rows.Scan(&tableName, &name, &kind, &column); err != nil {
			return fmt.Errorf("unable to scan key: %w", err)
		}
		t, ok := tables[tableName]
		if !ok {
			continue
		}

		if kind == "p" {
			t.PrimaryKey = append(t.PrimaryKey, column)
			continue
		}
		k := key{tableName, name}
		if _, seen := unique[k]; !seen {
			order = append(order, k)
		}
		unique[k] = append(unique[k], column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		tables[k.table].Unique = append(tables[k.table].Unique, unique[k])
	}

	return nil
}

func (c *Catalog) foreignKeys(ctx context.Context, schema string, tables map[string]*model.Table) error {
	rows, err := c.query(ctx, psql.
		Select("cl.relname", "con.conname", "a.attname", "rcl.relname", "ra.attname").
		From("pg_catalog.pg_constraint con").
		Join("pg_catalog.pg_class cl ON cl.oid = con.conrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = cl.relnamespace").
		Join("pg_catalog.pg_class rcl ON rcl.oid = con.confrelid").
		JoinClause("CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)").
		Join("pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum").
		Join("pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum").
		Where(sq.Eq{"n.nspname": schema}).
		Where("con.contype = 'f'").
		OrderBy("cl.relname", "con.conname", "k.ord"))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tableName, name, column, refTable, refColumn string
		if err := rows.Scan(&tableName, &name, &column, &refTable, &refColumn); err != nil {
			return fmt.Errorf("unable to scan foreign key: %w", err)
		}
		t, ok := tables[tableName]
		if !ok {
			continue
		}

		n := len(t.ForeignKeys)
		if n == 0 || t.ForeignKeys[n-1].Name != name {
			t.ForeignKeys = append(t.ForeignKeys, model.ForeignKey{Name: name, Table: tableName, RefTable: refTable})
			n++
		}
		fk := &t.ForeignKeys[n-1]
		fk.Columns = append(fk.Columns, column)
		fk.RefColumns = append(fk.RefColumns, refColumn)
	}

	return rows.Err()
}

// ColumnType maps a type oid to its family. For character types typMod
// carries the declared length.
func ColumnType(typ oid.Oid, typMod int64) (model.ColumnType, int) {
	switch typ {
	case oid.T_int2, oid.T_int4, oid.T_int8:
		return model.TypeInteger, 0
	case oid.T_float4, oid.T_float8, oid.T_numeric, oid.T_money:
		return model.TypeFloat, 0
	case oid.T_bool:
		return model.TypeBoolean, 0
	case oid.T_varchar, oid.T_bpchar:
		if typMod > varcharHeader {
			return model.TypeText, int(typMod - varcharHeader)
		}
		return model.TypeText, 0
	case oid.T_text, oid.T_name, oid.T_char:
		return model.TypeText, 0
	case oid.T_date:
		return model.TypeDate, 0
	case oid.T_time, oid.T_timetz:
		return model.TypeTime, 0
	case oid.T_timestamp, oid.T_timestamptz:
		return model.TypeTimestamp, 0
	case oid.T_interval:
		return model.TypeInterval, 0
	case oid.T_uuid:
		return model.TypeUUID, 0
	case oid.T_json, oid.T_jsonb:
		return model.TypeJSON, 0
	case oid.T_bytea:
		return model.TypeBytes, 0
	}

	return model.TypeUnknown, 0
}
