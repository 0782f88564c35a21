package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func ParsePGErrorCode(err error) string {
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
)

// Init-data verification
var (
	ErrMissingHash      = errors.New("init data hash missing")
	ErrInvalidSignature = errors.New("init data signature invalid")
)

// Order intake
var (
	ErrInvalidServices = errors.New("invalid services list")
	ErrUnknownUser     = errors.New("user identity unresolved")
)

// Storage / admin registry
var (
	ErrPersistence     = errors.New("persistence failure")
	ErrProtectedRecord = errors.New("record is protected")
	ErrAdminExists     = errors.New("admin already registered")
)
