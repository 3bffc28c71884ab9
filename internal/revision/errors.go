package revision

import (
	"errors"
	"fmt"

	"github.com/roach88/catalog/internal/store"
)

// Error is the engine's error type. Every operation failure that a caller
// can act on is an *Error; anything else is an unexpected internal failure.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// BBID identifies the affected entity, when there is one.
	BBID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNoChange indicates the submission diffed to nothing. It is an
	// expected outcome, not a failure.
	ErrCodeNoChange ErrorCode = "NO_CHANGE"

	// ErrCodeEntityNotFound indicates a bbid that does not resolve to an entity.
	ErrCodeEntityNotFound ErrorCode = "ENTITY_NOT_FOUND"

	// ErrCodeAlreadyDeleted indicates an entity whose data pointer is already null.
	ErrCodeAlreadyDeleted ErrorCode = "ALREADY_DELETED"

	// ErrCodeInvalidMerge indicates a merge request rejected before any writes.
	ErrCodeInvalidMerge ErrorCode = "INVALID_MERGE"

	// ErrCodeStorageConflict indicates an unanticipated constraint violation.
	ErrCodeStorageConflict ErrorCode = "STORAGE_CONFLICT"

	// ErrCodeUnresolvedReference indicates a temporary key or bbid that
	// could not be resolved within a submission.
	ErrCodeUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeInvalidInput indicates a malformed entity input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// ErrRedirectLoop is wrapped by the error returned when a redirect chain
// cycles or exceeds the configured depth.
var ErrRedirectLoop = errors.New("redirect chain does not terminate")

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.BBID != "" {
		msg = fmt.Sprintf("%s (bbid=%s)", msg, e.BBID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNoChange returns true if the operation changed nothing.
// Uses errors.As to handle wrapped errors.
func IsNoChange(err error) bool { return hasCode(err, ErrCodeNoChange) }

// IsNotFound returns true if a referenced entity does not exist.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeEntityNotFound) }

// IsAlreadyDeleted returns true if a referenced entity is tombstoned.
func IsAlreadyDeleted(err error) bool { return hasCode(err, ErrCodeAlreadyDeleted) }

// IsInvalidMerge returns true if a merge request was rejected.
func IsInvalidMerge(err error) bool { return hasCode(err, ErrCodeInvalidMerge) }

// IsStorageConflict returns true if storage reported a constraint violation.
func IsStorageConflict(err error) bool { return hasCode(err, ErrCodeStorageConflict) }

// IsUnresolvedReference returns true if a submission reference did not resolve.
func IsUnresolvedReference(err error) bool { return hasCode(err, ErrCodeUnresolvedReference) }

// IsInvalidInput returns true if an entity input was malformed.
func IsInvalidInput(err error) bool { return hasCode(err, ErrCodeInvalidInput) }

// NewNoChangeError creates the NO_CHANGE outcome.
func NewNoChangeError() *Error {
	return &Error{Code: ErrCodeNoChange, Message: "nothing to save"}
}

// NewNotFoundError creates an ENTITY_NOT_FOUND error for bbid.
func NewNotFoundError(bbid string) *Error {
	return &Error{Code: ErrCodeEntityNotFound, Message: "entity does not exist", BBID: bbid}
}

// NewAlreadyDeletedError creates an ALREADY_DELETED error for bbid.
func NewAlreadyDeletedError(bbid string) *Error {
	return &Error{Code: ErrCodeAlreadyDeleted, Message: "entity has been deleted", BBID: bbid}
}

func invalidMerge(bbid, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidMerge, Message: fmt.Sprintf(format, args...), BBID: bbid}
}

func invalidInput(bbid, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: fmt.Sprintf(format, args...), BBID: bbid}
}

func unresolved(ref, format string, args ...any) *Error {
	return &Error{Code: ErrCodeUnresolvedReference, Message: fmt.Sprintf(format, args...), BBID: ref}
}

// storageErr wraps a storage failure with op context. Constraint violations
// become STORAGE_CONFLICT; everything else stays an internal error.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, store.ErrConstraint) {
		return &Error{Code: ErrCodeStorageConflict, Message: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
