package repository

import (
	"errors"

	"estate_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes surfaced to callers.
const (
	CodeSlotConflict = "slot_conflict"
	CodeContention   = "contention"
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
	pgQueryCanceled    = "57014"
	pgDeadlockDetected = "40P01"
	pgSerialization    = "40001"

	activeSlotConstraint = "appointments_active_slot_key"

	msgSlotConflict = "this time slot is already booked for the property"
	msgContention   = "the property is busy with another update, please retry"
	msgNotFound     = "appointment not found"
)

// ErrSlotConflict builds the business error for an occupied slot.
func ErrSlotConflict() *apperr.Error {
	return apperr.Conflict(msgSlotConflict).WithCode(CodeSlotConflict)
}

// ErrContention builds the business error for a lock that could not be
// acquired in time.
func ErrContention(err error) *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, msgContention, err).WithCode(CodeContention)
}

// ErrNotFound builds the error for a missing appointment.
func ErrNotFound() *apperr.Error {
	return apperr.NotFound(msgNotFound)
}

// translate maps PostgreSQL failures that carry business meaning onto typed
// errors. Anything else is returned unchanged.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == activeSlotConstraint {
			return ErrSlotConflict().WithOp(op)
		}
	case pgLockNotAvailable, pgQueryCanceled, pgDeadlockDetected, pgSerialization:
		return ErrContention(err).WithOp(op)
	}
	return err
}
