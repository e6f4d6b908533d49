package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert violates a unique constraint, such
// as the partial unique index guarding one active enrollment per
// (student, course). Services translate it into a Conflict.
var ErrDuplicate = errors.New("duplicate row")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
