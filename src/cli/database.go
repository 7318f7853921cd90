package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"syndrrel/src/engine"
	"syndrrel/src/relations"
	"syndrrel/src/settings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// session is an opened database with relationship support
type session struct {
	db       *engine.Database
	rel      *relations.Relationships
	registry *prometheus.Registry
	schema   *SchemaFile
}

// openSession applies the schema file and loads any saved bundles from DataDir
func openSession(ctx context.Context, args *settings.Arguments, logger *zap.SugaredLogger) (*session, error) {
	schema, err := ReadSchemaFile(args.SchemaFile)
	if err != nil {
		return nil, err
	}

	store, err := engine.NewBundleStore(args.DataDir, logger)
	if err != nil {
		return nil, err
	}
	journal, err := engine.NewJournal(
		filepath.Join(args.DataDir, "journal", schema.Name+".journal"),
		engine.WithMaxFileSize(args.JournalMaxBytes),
		engine.WithRetentionDays(args.JournalRetentionDays),
	)
	if err != nil {
		return nil, err
	}

	db := engine.NewDatabase(schema.Name,
		engine.WithLogger(logger),
		engine.WithBundleStore(store),
		engine.WithJournal(journal),
	)
	registry := prometheus.NewRegistry()
	rel := relations.Install(db,
		relations.WithLogger(logger),
		relations.WithRegisterer(registry),
	)

	if err := db.Version(schema.Version).Stores(schema.Stores); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema %s: %w", schema.Name, err)
	}
	if err := db.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &session{db: db, rel: rel, registry: registry, schema: schema}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}
