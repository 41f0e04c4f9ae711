package domain

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/walk"

	"github.com/levtul/synthdb/model"
	"github.com/levtul/synthdb/walker"
)

// Walk extracts the tables of schema from a DDL script, in declaration
// order. Scripts numbered by pg_format are split on its statement markers,
// anything else on semicolons ending a line.
func Walk(sql, schema string, logger *slog.Logger) ([]*model.Table, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var exprs []string
	if walker.SplitterReg.MatchString(sql) {
		exprs = walker.SplitterReg.Split(sql, -1)
	} else {
		exprs = walker.StatementEndReg.Split(sql, -1)
	}

	myWalker := walker.NewWalker(schema)
	w := &walk.AstWalker{}
	for _, expr := range exprs {
		stmt := walker.Statement(expr)
		if !walker.IsSchemaStatement(stmt) || walker.GeneratedReg.MatchString(stmt) {
			continue
		}

		stmts, err := parser.Parse(stmt)
		if err != nil {
			return nil, fmt.Errorf("parser error: %w, expr: %s", err, stmt)
		}

		w.Fn = myWalker.GetWalkFunc("\n" + expr + "\n")
		_, err = w.Walk(stmts, nil)
		if err != nil {
			return nil, fmt.Errorf("walker error: %w, expr: %s", err, stmt)
		}
	}
	myWalker.Finish()

	if len(myWalker.Errs) > 0 {
		return nil, fmt.Errorf("invalid ddl: %w", errors.Join(myWalker.Errs...))
	}
	for _, warning := range myWalker.Warnings {
		logger.Warn("ddl warning", slog.String("warning", warning.Error()))
	}
	if len(myWalker.Tables) == 0 {
		return nil, model.ErrEmptySchema
	}

	return myWalker.Tables, nil
}
