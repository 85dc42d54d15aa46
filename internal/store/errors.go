package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStore classifies every failed write (save, delete, create).
	ErrStore = errors.New("store")

	ErrReadOnly         = errors.New("attribute is read-only")
	ErrDocumentNotFound = errors.New("document not found")
	ErrItemNotFound     = errors.New("item not found")
)

type writeError struct {
	op   string
	path string
	err  error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.op, e.path, e.err)
}

func (e *writeError) Unwrap() []error { return []error{ErrStore, e.err} }

func errWrite(op, path string, err error) error {
	return &writeError{op: op, path: path, err: err}
}
