package relations

import (
	"context"

	"syndrrel/src/engine"
	"syndrrel/src/models"
)

// RowCollection is a lazy query result
type RowCollection interface {
	ToArray(ctx context.Context) ([]models.Document, error)
}

// TableHandle is the view of one bundle the planner and executor need
type TableHandle interface {
	Name() string
	Schema() *models.BundleSchema
	QueryByIndexAnyOf(index string, values []interface{}) RowCollection
}

// Catalog lists the bundles of a database
type Catalog interface {
	Bundle(name string) (TableHandle, bool)
	BundleNames() []string
}

// NewCatalog adapts an engine database to Catalog
func NewCatalog(db *engine.Database) Catalog {
	return &databaseCatalog{db: db}
}

type databaseCatalog struct {
	db *engine.Database
}

func (c *databaseCatalog) Bundle(name string) (TableHandle, bool) {
	b, ok := c.db.Bundle(name)
	if !ok {
		return nil, false
	}
	return &bundleHandle{bundle: b}, true
}

func (c *databaseCatalog) BundleNames() []string {
	return c.db.Bundles()
}

// bundleHandle adapts engine.Bundle to TableHandle
type bundleHandle struct {
	bundle *engine.Bundle
}

func (h *bundleHandle) Name() string {
	return h.bundle.Name
}

func (h *bundleHandle) Schema() *models.BundleSchema {
	return h.bundle.Schema()
}

func (h *bundleHandle) QueryByIndexAnyOf(index string, values []interface{}) RowCollection {
	return h.bundle.Where(index).AnyOf(values...)
}
