package synth

import (
	"errors"
	"fmt"
)

var ErrGeneration = errors.New("generation failed")

// GenerationError reports a row that cannot satisfy its constraints, such as
// a NOT NULL foreign key whose referenced table produced no rows.
type GenerationError struct {
	Table  string
	Column string
	Reason string
}

func (e *GenerationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("cannot generate %s: %s", e.Table, e.Reason)
	}

	return fmt.Sprintf("cannot generate %s.%s: %s", e.Table, e.Column, e.Reason)
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
