package engine

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type Database struct {
	// DatabaseID is the unique identifier for the database.
	DatabaseID string

	// Name is the name of the database.
	Name string

	mu      sync.RWMutex
	bundles map[string]*Bundle
	version int

	beforeSteps []SchemaStep
	afterSteps  []SchemaStep

	store   BundleStore
	journal *Journal
	logger  *zap.SugaredLogger
	closed  atomic.Bool
}
