package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDanglingForeignKey = errors.New("dangling foreign key")
	ErrCyclicDependency   = errors.New("cyclic dependency")
	ErrDuplicateTable     = errors.New("duplicate table")
)

// DanglingForeignKeyError reports an edge whose target table or columns are
// absent from the input.
type DanglingForeignKeyError struct {
	Table    string
	Column   string
	RefTable string
	Reason   string
}

func (e *DanglingForeignKeyError) Error() string {
	return fmt.Sprintf("dangling foreign key %s.%s -> %s: %s", e.Table, e.Column, e.RefTable, e.Reason)
}

func (e *DanglingForeignKeyError) Is(target error) bool {
	return target == ErrDanglingForeignKey
}

// CyclicDependencyError names the tables of a cycle that has no nullable edge.
type CyclicDependencyError struct {
	Tables []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency without a nullable foreign key: %s", strings.Join(e.Tables, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}
