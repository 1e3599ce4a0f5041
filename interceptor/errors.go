package interceptor

import (
	stderrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
)

// conflictError builds the optimistic-lock conflict surfaced to callers.
// The chain never retries it; retry policy belongs to the caller.
func conflictError(entityType, entityID string) error {
	msg := fmt.Sprintf("optimistic lock conflict on %s %s: stored version advanced", entityType, entityID)
	return errors.New(msg, errors.CategoryConflict)
}

// IsConflict reports whether err is an optimistic-lock conflict.
func IsConflict(err error) bool {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Category == errors.CategoryConflict
}
