package hashindex

import (
	"time"

	"go.uber.org/zap"
)

// NewHashIndex creates an empty hash index for the specified field
func NewHashIndex(indexField IndexField, logger *zap.SugaredLogger) *HashIndex {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	hi := &HashIndex{
		logger: logger,
		metadata: HashIndexMetadata{
			FillFactor: DefaultFillFactor,
			IndexField: indexField.FieldName,
			IsUnique:   indexField.IsUnique,
			MultiEntry: indexField.MultiEntry,
			Created:    time.Now(),
		},
	}
	hi.reset()
	return hi
}

// Reset drops every entry and shrinks the table back to its initial size
func (hi *HashIndex) Reset() {
	hi.Lock()
	defer hi.Unlock()
	hi.reset()
}

func (hi *HashIndex) reset() {
	hi.buckets = make([][]*HashIndexItem, InitialBucketCount)
	hi.metadata.MaxBucket = InitialBucketCount - 1
	hi.metadata.LowMask = InitialBucketCount - 1
	hi.metadata.HighMask = (InitialBucketCount << 1) - 1
	hi.metadata.NumKeys = 0
	hi.metadata.NumTuples = 0
	hi.metadata.Splits = 0
}

// Metadata returns a snapshot of the index metadata
func (hi *HashIndex) Metadata() HashIndexMetadata {
	hi.RLock()
	defer hi.RUnlock()
	return hi.metadata
}

// Len returns the number of distinct keys in the index
func (hi *HashIndex) Len() int {
	hi.RLock()
	defer hi.RUnlock()
	return int(hi.metadata.NumKeys)
}

// KeysFor extracts the encoded keys a document value contributes to an index.
// A multi-entry index stores every indexable array element as its own key;
// elements that cannot be indexed are skipped. Non-indexable values yield no keys.
func KeysFor(value interface{}, multiEntry bool) [][]byte {
	if multiEntry {
		if elements, ok := Elements(value); ok {
			keys := make([][]byte, 0, len(elements))
			seen := make(map[string]struct{}, len(elements))
			for _, element := range elements {
				key, err := EncodeKey(element)
				if err != nil {
					continue
				}
				if _, dup := seen[string(key)]; dup {
					continue
				}
				seen[string(key)] = struct{}{}
				keys = append(keys, key)
			}
			return keys
		}
	}

	key, err := EncodeKey(value)
	if err != nil {
		return nil
	}
	return [][]byte{key}
}
