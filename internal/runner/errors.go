package runner

import (
	"errors"

	"github.com/nethoundsh/rmfile/pkg/filter"
)

var (
	// ErrPathNotFound is returned for a missing location, pattern file or
	// pattern directory. It is always reported before any file is touched.
	ErrPathNotFound = errors.New("path not found")

	// ErrNoActiveFilters is returned when no pattern file was loaded.
	ErrNoActiveFilters = filter.ErrNoActiveFilters
)

const (
	OpRead   = "read"
	OpRemove = "remove"
)

// FileError is a per-file failure during the walk. It is logged and the
// file is counted as skipped; the run carries on.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }
