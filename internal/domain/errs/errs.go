// Package errs defines the error taxonomy shared by the domain services and
// the transports that expose them.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

var (
	// ErrValidation marks caller-fixable input errors.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks unknown knowledge bases, merge requests, snapshots or versions.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks an action the merge request's state does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrConflict marks a merge blocked by concurrent modification of live state.
	ErrConflict = errors.New("merge conflict")
	// ErrConcurrencyTimeout marks a knowledge base lock that could not be taken in time.
	ErrConcurrencyTimeout = errors.New("concurrency timeout")
	// ErrApplyFailure marks an unexpected failure inside the commit transaction.
	ErrApplyFailure = errors.New("apply failure")
)

// Validation returns an ErrValidation error. The format may use %w.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrValidation, fmt.Errorf(format, args...))
}

// NotFound returns an ErrNotFound error naming what was looked up.
func NotFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

// ApplyFailure wraps err as an ErrApplyFailure, leaving it reachable with errors.Is.
func ApplyFailure(err error) error {
	if errors.Is(err, ErrApplyFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrApplyFailure, err)
}

// TransitionError reports an action the merge request's current status
// does not permit.
type TransitionError struct {
	Status entities.MergeRequestStatus
	Action entities.MergeRequestAction
	Reason string
	// Validation is set when the transition is refused because of who is
	// asking rather than the state, such as self-approval.
	Validation bool
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s merge request in status %s", strings.ReplaceAll(string(e.Action), "_", " "), e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is matches ErrInvalidTransition, and ErrValidation for actor errors.
func (e *TransitionError) Is(target error) bool {
	if target == ErrInvalidTransition {
		return true
	}
	return e.Validation && target == ErrValidation
}

// ConflictError carries the report of a refused merge.
type ConflictError struct {
	Report entities.ConflictReport
}

func (e *ConflictError) Error() string {
	n := len(e.Report.Conflicts)
	if n == 0 {
		return "merge conflict"
	}
	lines := make([]string, 0, n)
	for _, c := range e.Report.Conflicts {
		lines = append(lines, c.String())
	}
	return fmt.Sprintf("merge conflict: %d conflicting change(s) at version %d: %s",
		n, e.Report.CheckedAtVersion, strings.Join(lines, "; "))
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
