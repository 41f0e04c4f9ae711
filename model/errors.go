package model

import "errors"

var ErrEmptySchema = errors.New("schema has no tables")
