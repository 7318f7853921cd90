package relations

import (
	"context"
	"fmt"
	"time"

	"syndrrel/src/engine"
	"syndrrel/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RowSource is anything With can read base rows from, such as an
// *engine.Bundle or an *engine.Collection
type RowSource interface {
	TableName() string
	ToArray(ctx context.Context) ([]models.Document, error)
}

var (
	_ RowSource = (*engine.Bundle)(nil)
	_ RowSource = (*engine.Collection)(nil)
)

// Relationships resolves declared foreign keys for one database
type Relationships struct {
	db       *engine.Database
	catalog  Catalog
	registry *Registry
	executor *Executor
	metrics  *Metrics
	logger   *zap.SugaredLogger
}

type options struct {
	logger     *zap.SugaredLogger
	registerer prometheus.Registerer
}

// Option configures Install
type Option func(*options)

// WithLogger sets the logger used by the schema steps and the executor
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers the relationship metrics with reg instead of a
// private registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg != nil {
			o.registerer = reg
		}
	}
}

// Install adds relationship parsing to db's schema pipeline. It must be
// called before the first schema version is applied.
func Install(db *engine.Database, opts ...Option) *Relationships {
	o := &options{
		logger:     zap.NewNop().Sugar(),
		registerer: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}

	db.UseSchemaSteps(
		[]engine.SchemaStep{ParseRelationshipsStep()},
		[]engine.SchemaStep{AnnotateForeignKeysStep(o.logger)},
	)

	catalog := NewCatalog(db)
	metrics := NewMetrics(o.registerer)
	o.logger.Infow("Installed relationship support", "database", db.Name)

	return &Relationships{
		db:       db,
		catalog:  catalog,
		registry: NewRegistry(catalog),
		executor: NewExecutor(catalog, o.logger, metrics),
		metrics:  metrics,
		logger:   o.logger,
	}
}

// Registry returns the declared relationships of the database
func (r *Relationships) Registry() *Registry {
	return r.registry
}

// Metrics returns the collectors updated by With
func (r *Relationships) Metrics() *Metrics {
	return r.metrics
}

// With reads the rows of source and attaches the related documents named by
// spec. The spec is validated against the schema before any query runs.
func (r *Relationships) With(ctx context.Context, source RowSource, spec Spec) ([]*ResolvedRow, error) {
	start := time.Now()
	defer r.metrics.observe(start)

	baseName := source.TableName()
	base, ok := r.catalog.Bundle(baseName)
	if !ok {
		return nil, &SchemaError{Table: baseName, Err: ErrTableNotFound}
	}

	plans, err := Plan(baseName, base.Schema(), spec, r.catalog)
	if err != nil {
		return nil, err
	}

	rows, err := source.ToArray(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", baseName, err)
	}

	if len(plans) == 0 {
		resolved := make([]*ResolvedRow, len(rows))
		for i, row := range rows {
			resolved[i] = NewResolvedRow(row)
		}
		return resolved, nil
	}

	resolved, err := r.executor.Execute(ctx, rows, plans)
	if err != nil {
		return nil, err
	}
	r.logger.Debugw("Resolved relationships",
		"bundle", baseName,
		"rows", len(rows),
		"relationships", len(plans),
		"duration", time.Since(start))
	return resolved, nil
}

// WithBundle resolves spec for every document of the named bundle
func (r *Relationships) WithBundle(ctx context.Context, name string, spec Spec) ([]*ResolvedRow, error) {
	bundle, ok := r.db.Bundle(name)
	if !ok {
		return nil, &SchemaError{Table: name, Err: ErrTableNotFound}
	}
	return r.With(ctx, bundle, spec)
}
