package repository

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique constraint rejects an insert.
var ErrAlreadyExists = errors.New("already exists")
