package relations

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned when a relationship names a bundle the database does not have
	ErrTableNotFound = errors.New("bundle doesn't exist")

	// ErrNoForeignKeys is returned when a related bundle declares no foreign keys at all
	ErrNoForeignKeys = errors.New("bundle has no foreign keys configured")

	// ErrNoMatchingForeignKey is returned when none of a bundle's foreign keys point at the base bundle
	ErrNoMatchingForeignKey = errors.New("no foreign key refers to")

	ErrMalformedForeignKey = errors.New("malformed foreign key")
	ErrInvalidSpec         = errors.New("invalid relationship spec")
)

// SchemaError reports a relationship that cannot be planned against the
// declared schema. It is returned before any query runs.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("relationship bundle %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
