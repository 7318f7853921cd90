package engine

import (
	"fmt"
	"time"

	hashindex "syndrrel/src/hash_index"
	"syndrrel/src/models"

	"github.com/spf13/cast"
)

// buildIndexesLocked creates and fills one hash index per secondary index of
// schema from the documents currently stored. Caller must hold the lock.
func (b *Bundle) buildIndexesLocked(schema *models.BundleSchema) (map[string]*hashindex.HashIndex, error) {
	indexes := make(map[string]*hashindex.HashIndex, len(schema.Indexes))
	for _, spec := range schema.Indexes {
		indexes[spec.Name] = hashindex.NewHashIndex(hashindex.IndexField{
			FieldName:  spec.Name,
			IsUnique:   spec.Unique,
			MultiEntry: spec.MultiEntry,
		}, b.logger)
	}

	for _, id := range b.sortedIDs() {
		for name, keys := range b.indexKeys(b.documents[id], schema) {
			for _, key := range keys {
				if err := indexes[name].Insert(key, id); err != nil {
					return nil, fmt.Errorf("%w: bundle %s index %s: %v", ErrConstraint, b.Name, name, err)
				}
			}
		}
	}
	return indexes, nil
}

// swapSchemaLocked installs a new schema with indexes built by buildIndexesLocked
func (b *Bundle) swapSchemaLocked(schema *models.BundleSchema, indexes map[string]*hashindex.HashIndex) {
	b.schema = schema
	b.indexes = indexes
	b.logger.Debugf("Re-indexed bundle %s with %d indexes", b.Name, len(indexes))
}

// indexKeys computes the encoded keys each secondary index holds for doc
func (b *Bundle) indexKeys(doc models.Document, schema *models.BundleSchema) map[string][][]byte {
	out := make(map[string][][]byte, len(schema.Indexes))
	for _, spec := range schema.Indexes {
		value, ok := indexValue(spec, doc)
		if !ok {
			continue
		}
		if keys := hashindex.KeysFor(value, spec.MultiEntry); len(keys) > 0 {
			out[spec.Name] = keys
		}
	}
	return out
}

func (b *Bundle) checkUnique(id string, keys map[string][][]byte) error {
	for name, idxKeys := range keys {
		spec := b.schema.IndexByName[name]
		if spec == nil || !spec.Unique {
			continue
		}
		for _, key := range idxKeys {
			for _, other := range b.indexes[name].Find(key) {
				if other != id {
					return fmt.Errorf("%w: unique index %s of bundle %s already holds this value", ErrConstraint, name, b.Name)
				}
			}
		}
	}
	return nil
}

func (b *Bundle) unindexLocked(id string, doc models.Document) {
	for name, keys := range b.indexKeys(doc, b.schema) {
		for _, key := range keys {
			b.indexes[name].Remove(key, id)
		}
	}
}

func toInt64(v interface{}) (int64, bool) {
	n, err := cast.ToInt64E(v)
	return n, err == nil
}

// snapshot captures the bundle for persistence
func (b *Bundle) snapshot(version int) *BundleSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := &BundleSnapshot{
		BundleID:      b.BundleID,
		Name:          b.Name,
		Spec:          b.schema.Spec(),
		Version:       version,
		AutoIncrement: b.autoIncrement,
		Documents:     make([]map[string]interface{}, 0, len(b.documents)),
		SavedAt:       time.Now().UTC(),
	}
	for _, id := range b.sortedIDs() {
		snap.Documents = append(snap.Documents, map[string]interface{}(CloneDocument(b.documents[id])))
		if b.schema.PrimaryKey.Outbound {
			snap.Keys = append(snap.Keys, b.primaryKeys[id])
		}
	}
	return snap
}

// restore replaces the bundle contents with a snapshot
func (b *Bundle) restore(snap *BundleSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearLocked()
	for i, raw := range snap.Documents {
		var key []interface{}
		if b.schema.PrimaryKey.Outbound && i < len(snap.Keys) {
			key = []interface{}{normalizeBSONValue(snap.Keys[i])}
		}
		if _, _, err := b.writeLocked(NormalizeDocument(raw), key, true); err != nil {
			b.clearLocked()
			return err
		}
	}
	if snap.AutoIncrement > b.autoIncrement {
		b.autoIncrement = snap.AutoIncrement
	}

	b.logger.Infow("Restored bundle", "documents", len(b.documents), "savedAt", snap.SavedAt)
	return nil
}
