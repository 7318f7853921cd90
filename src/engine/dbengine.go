package engine

import (
	"context"
	"fmt"
	"sort"

	hashindex "syndrrel/src/hash_index"
	"syndrrel/src/models"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ------------------------------------------- schema versions -------------------------------------------

// Version is a pending schema version of a database
type Version struct {
	db     *Database
	number int
}

// Version starts declaring schema version n
func (db *Database) Version(n int) *Version {
	return &Version{db: db, number: n}
}

// Stores applies the store specs of this version. Bundles that already exist
// are re-indexed in place; their primary key must not change.
func (v *Version) Stores(specs map[string]string) error {
	db := v.db
	if db.closed.Load() {
		return ErrDatabaseClosed
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if v.number <= 0 || v.number < db.version {
		return fmt.Errorf("%w: %d (current version is %d)", ErrVersion, v.number, db.version)
	}

	build, err := RunSchemaPipeline(v.number, specs, db.pipelineLocked())
	if err != nil {
		return err
	}

	// Existing bundles stay locked until the new schema is swapped in
	for _, name := range build.BundleNames() {
		if existing, ok := db.bundles[name]; ok {
			existing.mu.Lock()
			defer existing.mu.Unlock()
		}
	}

	// Validate everything before touching any bundle
	rebuilt := make(map[string]map[string]*hashindex.HashIndex)
	for _, name := range build.BundleNames() {
		schema, ok := build.Schemas[name]
		if !ok {
			return fmt.Errorf("%w: no schema produced for bundle %s", ErrInvalidSpec, name)
		}
		existing, ok := db.bundles[name]
		if !ok {
			continue
		}
		current := existing.schema
		if !samePrimaryKey(&current.PrimaryKey, &schema.PrimaryKey) {
			return fmt.Errorf("%w: bundle %s from %q to %q", ErrPrimaryKeyChange, name, current.PrimaryKey.Src, schema.PrimaryKey.Src)
		}
		indexes, err := existing.buildIndexesLocked(schema)
		if err != nil {
			return err
		}
		rebuilt[name] = indexes
	}

	for _, name := range build.BundleNames() {
		schema := build.Schemas[name]
		if existing, ok := db.bundles[name]; ok {
			existing.swapSchemaLocked(schema, rebuilt[name])
			continue
		}
		db.bundles[name] = newBundle(db, schema)
	}
	db.version = v.number

	db.logger.Infow("Applied schema version",
		"database", db.Name,
		"version", v.number,
		"bundles", build.BundleNames())
	db.journalf("VERSION", "", "version %d: %v", v.number, build.BundleNames())

	return nil
}

// VersionNumber is the highest applied schema version, 0 before the first one
func (db *Database) VersionNumber() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.version
}

// ------------------------------------------- bundle access -------------------------------------------

// Bundles lists the names of all bundles in sorted order
func (db *Database) Bundles() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.bundles))
	for name := range db.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bundle looks up a bundle by name
func (db *Database) Bundle(name string) (*Bundle, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	b, ok := db.bundles[name]
	return b, ok
}

// Schemas returns the active schema of every bundle
func (db *Database) Schemas() map[string]*models.BundleSchema {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[string]*models.BundleSchema, len(db.bundles))
	for name, b := range db.bundles {
		out[name] = b.Schema()
	}
	return out
}

// ------------------------------------------- persistence -------------------------------------------

// Save writes every bundle to the bundle store
func (db *Database) Save(ctx context.Context) error {
	if db.closed.Load() {
		return ErrDatabaseClosed
	}

	db.mu.RLock()
	store := db.store
	version := db.version
	bundles := make([]*Bundle, 0, len(db.bundles))
	for _, b := range db.bundles {
		bundles = append(bundles, b)
	}
	db.mu.RUnlock()

	if store == nil {
		return ErrNoBundleStore
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range bundles {
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := store.SaveBundle(b.snapshot(version)); err != nil {
				return fmt.Errorf("saving bundle %s: %w", b.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	db.logger.Infow("Saved database", "database", db.Name, "bundles", len(bundles))
	return nil
}

// Load restores the documents of every declared bundle from the bundle store.
// Files for bundles the current schema does not declare are skipped.
func (db *Database) Load(ctx context.Context) error {
	if db.closed.Load() {
		return ErrDatabaseClosed
	}

	db.mu.RLock()
	store := db.store
	version := db.version
	db.mu.RUnlock()

	if store == nil {
		return ErrNoBundleStore
	}

	names, err := store.ListBundles()
	if err != nil {
		return err
	}

	loaded := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		bundle, ok := db.Bundle(name)
		if !ok {
			db.logger.Warnw("Skipping bundle file without schema", "bundle", name)
			continue
		}

		snapshot, err := store.LoadBundle(name)
		if err != nil {
			return fmt.Errorf("loading bundle %s: %w", name, err)
		}
		if snapshot.Version > version {
			db.logger.Warnw("Bundle file written by a newer schema version",
				"bundle", name,
				"fileVersion", snapshot.Version,
				"version", version)
		}
		if err := bundle.restore(snapshot); err != nil {
			return fmt.Errorf("restoring bundle %s: %w", name, err)
		}
		loaded++
	}

	db.logger.Infow("Loaded database", "database", db.Name, "bundles", loaded)
	return nil
}

// Close closes the journal. The database rejects further schema changes and writes.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if db.journal != nil {
		err = multierr.Append(err, db.journal.CleanupOldJournals())
		err = multierr.Append(err, db.journal.Close())
	}
	return err
}

func (db *Database) journalf(command, bundle, format string, args ...interface{}) {
	if db.journal == nil {
		return
	}
	if err := db.journal.AddEntry(command, bundle, fmt.Sprintf(format, args...)); err != nil {
		db.logger.Warnw("Failed to write journal entry", "command", command, "bundle", bundle, "error", err)
	}
}
