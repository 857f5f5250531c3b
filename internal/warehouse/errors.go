package warehouse

import (
	"errors"
	"fmt"
	"strings"
)

// InsertError reports a rejected bulk append. Errors holds the sink's
// per-row messages verbatim; Err is set when the call failed as a whole.
type InsertError struct {
	Table  string
	Errors []string
	Err    error
}

func (e *InsertError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("insert errors for %s: %s", e.Table, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("insert into %s failed: %v", e.Table, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// ProvisionError reports a failed namespace or table creation.
type ProvisionError struct {
	Table string
	Op    string
	Err   error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// IsInsertError reports whether err wraps an *InsertError.
func IsInsertError(err error) bool {
	var ierr *InsertError
	return errors.As(err, &ierr)
}

// IsProvisionError reports whether err wraps a *ProvisionError.
func IsProvisionError(err error) bool {
	var perr *ProvisionError
	return errors.As(err, &perr)
}
