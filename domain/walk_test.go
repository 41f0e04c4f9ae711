package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/resolver"
	"github.com/levtul/synthdb/testutil"
)

const shopDDL = `
-- shop schema
CREATE TABLE users (
    -- count:50
    id serial PRIMARY KEY,
    email varchar(64) NOT NULL UNIQUE, -- type:email
    status text NOT NULL, -- oneof:[new, active]
    status_code int,
    age int -- range:[18 - 90]
);

CREATE TABLE orders (
    id bigint NOT NULL,
    user_id int NOT NULL REFERENCES users,
    total numeric(10,2),
    created_at timestamp
);

ALTER TABLE ONLY orders ADD CONSTRAINT orders_pkey PRIMARY KEY (id);

CREATE TABLE items (
    order_id bigint,
    sku text,
    CONSTRAINT items_pk PRIMARY KEY (order_id, sku)
);

ALTER TABLE items ADD CONSTRAINT items_order_fk FOREIGN KEY (order_id) REFERENCES orders (id);
ALTER TABLE orders ALTER COLUMN created_at SET NOT NULL;
CREATE UNIQUE INDEX orders_user_created ON orders (user_id, created_at);
CREATE INDEX orders_total ON orders (total);
`

func TestWalk_Shop(t *testing.T) {
	tables, err := Walk(shopDDL, "", testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.Len(t, tables, 3)

	users, orders, items := tables[0], tables[1], tables[2]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "items", items.Name)

	assert.Equal(t, 50, users.Rows)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	assert.Equal(t, [][]string{{"email"}}, users.Unique)
	assert.Equal(t, []string{"id", "email", "status", "status_code", "age"}, users.ColumnNames())

	id := users.Column("id")
	assert.Equal(t, model.TypeInteger, id.Type)
	assert.False(t, id.Nullable)

	email := users.Column("email")
	assert.Equal(t, model.TypeText, email.Type)
	assert.Equal(t, 64, email.MaxLength)
	assert.False(t, email.Nullable)
	require.IsType(t, &model.HintPreset{}, email.Hint)
	assert.Equal(t, model.PresetEmail, email.Hint.(*model.HintPreset).Preset)

	status := users.Column("status")
	require.IsType(t, &model.HintOneOf{}, status.Hint)
	assert.Equal(t, []any{"new", "active"}, status.Hint.(*model.HintOneOf).Values)
	assert.Nil(t, users.Column("status_code").Hint)

	age := users.Column("age")
	assert.True(t, age.Nullable)
	require.IsType(t, &model.HintRange{}, age.Hint)
	assert.Equal(t, int64(18), age.Hint.(*model.HintRange).From)

	assert.Equal(t, []string{"id"}, orders.PrimaryKey)
	assert.Equal(t, model.TypeFloat, orders.Column("total").Type)
	assert.Equal(t, model.TypeTimestamp, orders.Column("created_at").Type)
	assert.False(t, orders.Column("created_at").Nullable)
	assert.Equal(t, [][]string{{"user_id", "created_at"}}, orders.Unique)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "users", orders.ForeignKeys[0].RefTable)
	assert.Equal(t, []string{"user_id"}, orders.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"id"}, orders.ForeignKeys[0].RefColumns, "implicit target is the primary key")

	assert.Equal(t, []string{"order_id", "sku"}, items.PrimaryKey)
	assert.False(t, items.Column("order_id").Nullable)
	require.Len(t, items.ForeignKeys, 1)
	assert.Equal(t, model.ForeignKey{
		Name:       "items_order_fk",
		Table:      "items",
		Columns:    []string{"order_id"},
		RefTable:   "orders",
		RefColumns: []string{"id"},
	}, items.ForeignKeys[0])

	plan, err := resolver.Resolve(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders", "items"}, plan.Names())
}

func TestWalk_PgFormatNumbering(t *testing.T) {
	sql := `-- Statement # 1
CREATE TABLE public.parents (
    id uuid PRIMARY KEY
);

-- Statement # 2
CREATE TABLE public.children (
    id int PRIMARY KEY,
    parent_id uuid REFERENCES public.parents (id),
    payload jsonb,
    data bytea
);

-- Statement # 3
SET search_path = public;
`
	tables, err := Walk(sql, "public", nil)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, model.TypeUUID, tables[0].Column("id").Type)
	children := tables[1]
	assert.Equal(t, model.TypeJSON, children.Column("payload").Type)
	assert.Equal(t, model.TypeBytes, children.Column("data").Type)
	assert.True(t, children.Column("parent_id").Nullable)
	require.Len(t, children.ForeignKeys, 1)
	assert.Equal(t, "parents", children.ForeignKeys[0].RefTable)
}

func TestWalk_OtherSchemaIgnored(t *testing.T) {
	sql := `
CREATE SCHEMA audit;
CREATE TABLE audit.log (id int PRIMARY KEY);
CREATE TABLE users (id int PRIMARY KEY);
`
	tables, err := Walk(sql, "public", nil)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "users", tables[0].Name)

	tables, err = Walk(sql, "audit", nil)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "log", tables[0].Name)
}

func TestWalk_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"duplicate table", "CREATE TABLE a (id int);\nCREATE TABLE a (id int);\n"},
		{"unknown table", "ALTER TABLE missing ADD CONSTRAINT pk PRIMARY KEY (id);\n"},
		{"bad hint", "CREATE TABLE a (\n    id int, -- type:email\n    name text\n);\n"},
		{"unknown schema", "CREATE TABLE nope.a (id int);\n"},
		{"syntax", "CREATE TABLE a (id int,,);\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Walk(tt.sql, "", nil)
			assert.Error(t, err)
		})
	}
}

func TestWalk_Empty(t *testing.T) {
	_, err := Walk("SET statement_timeout = 0;\n", "", nil)
	assert.ErrorIs(t, err, model.ErrEmptySchema)
}
