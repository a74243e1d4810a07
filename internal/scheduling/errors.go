package scheduling

import (
	"errors"
	"fmt"
)

// Kind-level sentinels. Every domain error unwraps to exactly one of these;
// the API layer maps them to 404/409/400.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

// Error is a domain error carrying its taxonomy kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func notFound(format string, args ...any) error {
	return &Error{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) error {
	return &Error{kind: ErrBadRequest, msg: fmt.Sprintf(format, args...)}
}

func isConflict(err error) bool { return errors.Is(err, ErrConflict) }
func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Stable conditions callers branch on with errors.Is. Each also matches its
// kind sentinel.
var (
	ErrDoctorNotFound       = notFound("doctor not found")
	ErrPatientNotFound      = notFound("patient not found")
	ErrSlotNotFound         = notFound("slot not found")
	ErrAppointmentNotFound  = notFound("appointment not found")
	ErrAvailabilityNotFound = notFound("availability not found")

	ErrSlotFull        = conflict("slot has no remaining capacity")
	ErrSlotHasBookings = conflict("slot has active booked appointments")
)
