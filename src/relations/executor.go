package relations

import (
	"context"
	"fmt"

	hashindex "syndrrel/src/hash_index"
	"syndrrel/src/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs planned relationships against a catalog, one batched
// any-of query per plan.
type Executor struct {
	catalog Catalog
	logger  *zap.SugaredLogger
	metrics *Metrics
}

// NewExecutor creates an executor. logger and metrics may be nil.
func NewExecutor(catalog Catalog, logger *zap.SugaredLogger, metrics *Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Executor{
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
	}
}

type batch struct {
	plan       ResolvedForeignTable
	table      TableHandle
	values     []interface{}
	multiEntry bool
	records    []models.Document
}

// Execute fetches the related documents of every plan concurrently and
// attaches them to the rows. Any failed fetch fails the whole call.
func (e *Executor) Execute(ctx context.Context, rows []models.Document, plans []ResolvedForeignTable) ([]*ResolvedRow, error) {
	batches := make([]*batch, len(plans))
	for i, plan := range plans {
		table, ok := e.catalog.Bundle(plan.TableName)
		if !ok {
			return nil, &SchemaError{Table: plan.TableName, Err: ErrTableNotFound}
		}
		b := &batch{
			plan:   plan,
			table:  table,
			values: distinctValues(rows, plan.TargetIndex),
		}
		if schema := table.Schema(); schema != nil {
			if idx, ok := schema.Index(plan.Index); ok {
				b.multiEntry = idx.MultiEntry
			}
		}
		batches[i] = b
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			e.metrics.fetched(b.plan.TableName)
			records, err := b.table.QueryByIndexAnyOf(b.plan.Index, b.values).ToArray(gctx)
			if err != nil {
				return fmt.Errorf("fetching %s by %s: %w", b.plan.TableName, b.plan.Index, err)
			}
			b.records = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make([]*ResolvedRow, len(rows))
	for i, row := range rows {
		resolved[i] = NewResolvedRow(row)
	}

	for _, b := range batches {
		e.attach(resolved, b)
	}
	return resolved, nil
}

func (e *Executor) attach(rows []*ResolvedRow, b *batch) {
	one := make(map[string]models.Document)
	many := make(map[string][]models.Document)
	for _, record := range b.records {
		value, _ := models.ValueAt(record, b.plan.Index)
		for _, key := range hashindex.KeysFor(value, b.multiEntry) {
			if b.plan.OneToOne {
				one[string(key)] = record
			} else {
				many[string(key)] = append(many[string(key)], record)
			}
		}
	}

	unmatched := 0
	for _, row := range rows {
		var key string
		if value, ok := models.ValueAt(row.Record(), b.plan.TargetIndex); ok {
			if encoded, err := hashindex.EncodeKey(value); err == nil {
				key = string(encoded)
			}
		}

		if b.plan.OneToOne {
			record, ok := one[key]
			if !ok || key == "" {
				unmatched++
				row.Set(b.plan.Column, models.Document(nil))
				continue
			}
			row.Set(b.plan.Column, record)
			continue
		}

		records := many[key]
		if len(records) == 0 || key == "" {
			unmatched++
			row.Set(b.plan.Column, []models.Document{})
			continue
		}
		row.Set(b.plan.Column, append([]models.Document(nil), records...))
	}

	if unmatched > 0 {
		e.metrics.unmatched(b.plan.TableName, unmatched)
	}
	e.logger.Debugw("Attached related documents",
		"bundle", b.plan.TableName,
		"column", b.plan.Column,
		"fetched", len(b.records),
		"unmatched", unmatched)
}

// distinctValues collects the indexable values found at keyPath, first seen first
func distinctValues(rows []models.Document, keyPath string) []interface{} {
	seen := make(map[string]struct{})
	var values []interface{}
	for _, row := range rows {
		value, ok := models.ValueAt(row, keyPath)
		if !ok {
			continue
		}
		key, err := hashindex.EncodeKey(value)
		if err != nil {
			continue
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		values = append(values, value)
	}
	return values
}
