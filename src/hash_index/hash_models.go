package hashindex

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultFillFactor is the average number of keys per bucket before a split
	DefaultFillFactor = 4

	// Start with 4 buckets like PostgreSQL
	InitialBucketCount = 4
)

// HashIndexMetadata stores global information about the hash index
type HashIndexMetadata struct {
	MaxBucket  uint32 // Highest bucket number in use
	HighMask   uint32 // Mask for the next doubling of the table
	LowMask    uint32 // Mask for the current doubling of the table
	FillFactor uint32 // Keys per bucket that trigger a split
	NumKeys    uint64 // Distinct keys
	NumTuples  uint64 // Total key/document pairs
	Splits     uint64
	IndexField string
	IsUnique   bool
	MultiEntry bool
	Created    time.Time
}

// HashIndexItem holds one distinct key and the documents it points to
type HashIndexItem struct {
	HashValue uint32
	Key       []byte
	DocIDs    []string
}

// HashIndex is an in-memory linear hashing index over encoded keys
type HashIndex struct {
	sync.RWMutex
	metadata HashIndexMetadata
	buckets  [][]*HashIndexItem
	logger   *zap.SugaredLogger
}

// IndexField defines what field from documents will be indexed
type IndexField struct {
	FieldName  string
	IsUnique   bool
	MultiEntry bool
}
