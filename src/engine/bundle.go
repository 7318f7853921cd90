package engine

import (
	"fmt"
	"sort"
	"sync"

	hashindex "syndrrel/src/hash_index"
	"syndrrel/src/helpers"
	"syndrrel/src/models"

	"go.uber.org/zap"
)

// Bundle is a table of documents with a primary key and secondary indexes.
// Documents are keyed by the encoded primary key.
type Bundle struct {
	// BundleID is the unique identifier for the bundle.
	BundleID string

	// Name is the name of the bundle.
	Name string

	mu            sync.RWMutex
	schema        *models.BundleSchema
	documents     map[string]models.Document
	primaryKeys   map[string]interface{}
	indexes       map[string]*hashindex.HashIndex
	autoIncrement int64

	db     *Database
	logger *zap.SugaredLogger
}

func newBundle(db *Database, schema *models.BundleSchema) *Bundle {
	b := &Bundle{
		BundleID:    helpers.GenerateUUID(),
		Name:        schema.Name,
		schema:      schema,
		documents:   make(map[string]models.Document),
		primaryKeys: make(map[string]interface{}),
		db:          db,
		logger:      db.logger.With("bundle", schema.Name),
	}
	b.indexes, _ = b.buildIndexesLocked(schema)
	return b
}

// TableName returns the bundle name
func (b *Bundle) TableName() string {
	return b.Name
}

// Schema returns the active schema. It must be treated as read-only.
func (b *Bundle) Schema() *models.BundleSchema {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema
}

// Count returns the number of documents in the bundle
func (b *Bundle) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.documents)
}

// Add inserts a document and returns its primary key. It fails with
// ErrConstraint if the key already exists. An explicit key may be passed for
// bundles with an outbound primary key.
func (b *Bundle) Add(doc models.Document, key ...interface{}) (interface{}, error) {
	return b.write(doc, key, false)
}

// Put inserts or replaces a document and returns its primary key
func (b *Bundle) Put(doc models.Document, key ...interface{}) (interface{}, error) {
	return b.write(doc, key, true)
}

// BulkAdd inserts all documents or none of them
func (b *Bundle) BulkAdd(docs []models.Document) ([]interface{}, error) {
	if b.db.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]interface{}, 0, len(docs))
	added := make([]string, 0, len(docs))
	counter := b.autoIncrement
	for i, doc := range docs {
		key, id, err := b.writeLocked(doc, nil, false)
		if err != nil {
			for _, rollback := range added {
				b.removeLocked(rollback)
			}
			b.autoIncrement = counter
			return nil, fmt.Errorf("bulk add to %s failed at document %d: %w", b.Name, i, err)
		}
		keys = append(keys, key)
		added = append(added, id)
	}

	b.db.journalf("BULK_ADD", b.Name, "%d documents", len(keys))
	return keys, nil
}

// Get returns a copy of the document stored under key
func (b *Bundle) Get(key interface{}) (models.Document, bool) {
	encoded, err := hashindex.EncodeKey(key)
	if err != nil {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.documents[string(encoded)]
	if !ok {
		return nil, false
	}
	return CloneDocument(doc), true
}

// Delete removes the document stored under key. Deleting a missing key is a no-op.
func (b *Bundle) Delete(key interface{}) error {
	if b.db.closed.Load() {
		return ErrDatabaseClosed
	}
	encoded, err := hashindex.EncodeKey(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removeLocked(string(encoded)) {
		b.db.journalf("DELETE", b.Name, "%v", key)
	}
	return nil
}

// Clear removes every document
func (b *Bundle) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
	b.db.journalf("CLEAR", b.Name, "")
}

func (b *Bundle) clearLocked() {
	b.documents = make(map[string]models.Document)
	b.primaryKeys = make(map[string]interface{})
	for _, idx := range b.indexes {
		idx.Reset()
	}
}

func (b *Bundle) write(doc models.Document, key []interface{}, replace bool) (interface{}, error) {
	if b.db.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pk, _, err := b.writeLocked(doc, key, replace)
	if err != nil {
		return nil, err
	}

	command := "ADD"
	if replace {
		command = "PUT"
	}
	b.db.journalf(command, b.Name, "%v", pk)
	return pk, nil
}

// writeLocked stores a copy of doc. Caller must hold the write lock.
func (b *Bundle) writeLocked(doc models.Document, explicitKey []interface{}, replace bool) (interface{}, string, error) {
	if doc == nil {
		return nil, "", fmt.Errorf("%w: nil document for bundle %s", ErrInvalidDocument, b.Name)
	}

	stored := CloneDocument(doc)
	pk := &b.schema.PrimaryKey

	var key interface{}
	if pk.Outbound {
		switch {
		case len(explicitKey) > 0 && explicitKey[0] != nil:
			key = explicitKey[0]
		case pk.AutoIncrement:
			key = b.autoIncrement + 1
		default:
			key = helpers.GenerateUUID()
		}
	} else {
		value, ok := indexValue(pk, stored)
		if !ok || value == nil {
			if !pk.AutoIncrement {
				return nil, "", fmt.Errorf("%w: document for bundle %s has no primary key %s", ErrInvalidKey, b.Name, pk.Name)
			}
			value = b.autoIncrement + 1
			models.SetValueAt(stored, pk.KeyPath[0], value)
		}
		key = value
	}

	encoded, err := hashindex.EncodeKey(key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bundle %s key %v: %v", ErrInvalidKey, b.Name, key, err)
	}
	id := string(encoded)

	previous, exists := b.documents[id]
	if exists && !replace {
		return nil, "", fmt.Errorf("%w: key %v already exists in bundle %s", ErrConstraint, key, b.Name)
	}

	keys := b.indexKeys(stored, b.schema)
	if err := b.checkUnique(id, keys); err != nil {
		return nil, "", err
	}

	if exists {
		b.unindexLocked(id, previous)
	}
	for name, idxKeys := range keys {
		for _, k := range idxKeys {
			if err := b.indexes[name].Insert(k, id); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrConstraint, err)
			}
		}
	}
	b.documents[id] = stored
	b.primaryKeys[id] = key

	if pk.AutoIncrement {
		if _, isString := key.(string); !isString {
			if n, ok := toInt64(key); ok && n > b.autoIncrement {
				b.autoIncrement = n
			}
		}
	}

	return key, id, nil
}

func (b *Bundle) removeLocked(id string) bool {
	doc, ok := b.documents[id]
	if !ok {
		return false
	}
	b.unindexLocked(id, doc)
	delete(b.documents, id)
	delete(b.primaryKeys, id)
	return true
}

// sortedIDs returns every encoded primary key in index order
func (b *Bundle) sortedIDs() []string {
	ids := make([]string, 0, len(b.documents))
	for id := range b.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
