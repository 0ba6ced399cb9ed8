package allocation

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a search completed but no record matched the
// normalized key. It is local to a single request and never affects the
// index or future searches.
var ErrNotFound = errors.New("no matching wallet found")

// DataLoadError indicates the source table is missing, unreadable, or
// malformed. It is fatal to session start: no partial index is ever built.
type DataLoadError struct {
	Source string // table path or description
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load allocation table %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load allocation table %s: %s", e.Source, e.Reason)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// newDataLoadError wraps a load failure with its source context.
func newDataLoadError(source, reason string, err error) *DataLoadError {
	return &DataLoadError{Source: source, Reason: reason, Err: err}
}
