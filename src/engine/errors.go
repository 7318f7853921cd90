package engine

import "errors"

var (
	ErrBundleNotFound   = errors.New("bundle not found")
	ErrIndexNotFound    = errors.New("index not found")
	ErrConstraint       = errors.New("constraint violation")
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidSpec      = errors.New("invalid store spec")
	ErrPrimaryKeyChange = errors.New("primary key cannot be changed")
	ErrVersion          = errors.New("invalid schema version")
	ErrDatabaseClosed   = errors.New("database is closed")
	ErrNoBundleStore    = errors.New("no bundle store configured")
)
