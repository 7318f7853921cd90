package engine

import (
	"syndrrel/src/helpers"

	"go.uber.org/zap"
)

// DatabaseOption configures a Database
type DatabaseOption func(*Database)

// WithLogger sets the logger used by the database and its bundles
func WithLogger(logger *zap.SugaredLogger) DatabaseOption {
	return func(db *Database) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithJournal records every write and schema version in journal
func WithJournal(journal *Journal) DatabaseOption {
	return func(db *Database) {
		db.journal = journal
	}
}

// WithBundleStore sets where Save and Load persist bundles
func WithBundleStore(store BundleStore) DatabaseOption {
	return func(db *Database) {
		db.store = store
	}
}

// NewDatabase creates an empty database. Bundles appear once a schema
// version is applied with Version(n).Stores(...).
func NewDatabase(name string, opts ...DatabaseOption) *Database {
	db := &Database{
		DatabaseID: helpers.GenerateUUID(),
		Name:       name,
		bundles:    make(map[string]*Bundle),
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}
