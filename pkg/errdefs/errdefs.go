// Package errdefs holds the error kinds shared by the migration packages.
// Errors are wrapped with fmt.Errorf and matched with errors.Is.
package errdefs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a lookup by id or name matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a lookup by name matches more than one
	// non-archived item.
	ErrAmbiguous = errors.New("ambiguous")

	// ErrConfiguration covers upstream settings and user supplied options
	// that make a migration impossible.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidReference is returned for a source-table or filter clause
	// that cannot be interpreted.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNoEquivalent is returned when a source table has no counterpart in
	// the target database.
	ErrNoEquivalent = errors.New("no equivalent")

	// ErrAlreadyMigrated signals that a column already lives on a target
	// table. The rewrite visitor swallows it.
	ErrAlreadyMigrated = errors.New("already migrated")

	// ErrSchema is returned when a JSON document does not have the expected
	// shape.
	ErrSchema = errors.New("unexpected schema")

	// ErrMigration is returned when the upstream refuses a write or any
	// other request.
	ErrMigration = errors.New("migration failed")
)

// StatusError is returned by the gateway for every non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: server returned %d (%s)", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is makes every StatusError match ErrMigration, and 404s match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrMigration:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnauthorized reports whether err is a 401 from the upstream.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
