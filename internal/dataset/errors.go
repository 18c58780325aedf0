package dataset

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset indicates the loaded input had no rows or columns.
var ErrEmptyDataset = errors.New("empty dataset")

// ErrUnsupportedFormat indicates the file extension has no parser.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DataError reports malformed or empty input data.
type DataError struct {
	Path string
	Err  error
}

func (e *DataError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("data error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("data error: %v", e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// NewDataError wraps err as a DataError for the given input path.
func NewDataError(path string, err error) *DataError {
	return &DataError{Path: path, Err: err}
}
