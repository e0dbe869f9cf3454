package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by callers that need a lookup miss as an error
// rather than a nil result.
var ErrNotFound = errors.New("trust line not found")

// ValidationError reports a trust line that violates its invariants. It is
// a caller bug: an invalid entity must never reach storage, so the current
// unit of work has to abort.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trust line: %s", e.Reason)
}

// UsageError reports an operation invoked against the issuer's own pseudo
// trust line in a context that assumes a storage-backed holder line.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ConsistencyError reports a mutating store operation that affected a row
// count other than exactly one: a lost update, a missing row, or a key
// uniqueness violation. Retrying blind could double-apply a balance change,
// so the enclosing unit of work must abort.
type ConsistencyError struct {
	Op   string
	Rows int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s affected %d rows, want exactly 1", e.Op, e.Rows)
}
