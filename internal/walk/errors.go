package walk

import (
	"errors"
	"fmt"
)

// ErrNotDir is reported when a traversal root is not a directory.
var ErrNotDir = errors.New("not a directory")

// ListError is a directory that could not be read.
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("listing %q: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// StatError is an entry that could not be stat'd.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("stat %q: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error {
	return e.Err
}
