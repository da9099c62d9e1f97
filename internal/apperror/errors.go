// Package apperror classifies domain failures so handlers can map them to
// responses without knowing which layer produced them.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindPreconditionFailed Kind = "precondition_failed"
	KindValidation         Kind = "validation"
	KindAuthorization      Kind = "authorization"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches another *Error with the same kind and message, so sentinel
// values keep working after being wrapped with fmt.Errorf("%w").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func Precondition(format string, args ...any) *Error {
	return New(KindPreconditionFailed, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(KindAuthorization, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var (
	ErrRoomNotFound        = NotFound("room not found")
	ErrReservationNotFound = NotFound("reservation not found")
	ErrPaymentNotFound     = NotFound("payment not found")

	ErrRoomUnavailable  = Conflict("room is not available")
	ErrOverlap          = Conflict("room already booked for selected dates")
	ErrDuplicateAdvance = Conflict("advance payment already made")
	ErrDuplicateRoom    = Conflict("room number already exists")
	ErrRoomHasBookings  = Conflict("room has active reservations")
	ErrSweepInProgress  = Conflict("maintenance job already running")

	ErrInvalidDateRange   = Validation("check_out_date must be after check_in_date")
	ErrNonPositiveAmount  = Validation("payment amount must be greater than zero")
	ErrExceedsRemaining   = Validation("payment exceeds remaining amount due")
	ErrAmountPrecision    = Validation("payment amount must have at most 2 decimal places")
	ErrMissingMethod      = Validation("payment method is required")
	ErrUnknownPaymentType = Validation("payment type must be one of advance, remaining, full")

	ErrForbidden = Forbidden("not authorized to perform this action")
)
