package engine

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	hashindex "syndrrel/src/hash_index"
	"syndrrel/src/models"
)

// PrimaryKeyIndex addresses the primary key in Where, also for outbound keys
const PrimaryKeyIndex = ":id"

// WhereClause selects documents of a bundle by one index
type WhereClause struct {
	bundle *Bundle
	index  string
}

// ---------------------------------------- queries ----------------------------------------

// Where starts a query on the named index or on the primary key
func (b *Bundle) Where(index string) *WhereClause {
	return &WhereClause{bundle: b, index: index}
}

// ToCollection returns a collection over every document in primary key order
func (b *Bundle) ToCollection() *Collection {
	return &Collection{bundle: b, all: true}
}

// ToArray returns a copy of every document in primary key order
func (b *Bundle) ToArray(ctx context.Context) ([]models.Document, error) {
	return b.ToCollection().ToArray(ctx)
}

// Equals matches documents whose index value equals value
func (w *WhereClause) Equals(value interface{}) *Collection {
	return w.AnyOf(value)
}

// AnyOf matches documents whose index value equals any of values
func (w *WhereClause) AnyOf(values ...interface{}) *Collection {
	c := &Collection{bundle: w.bundle, index: w.index}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		key, err := hashindex.EncodeKey(v)
		if err != nil {
			c.err = fmt.Errorf("%w: %v is not a valid key for %s.%s", ErrInvalidKey, v, w.bundle.Name, w.index)
			return c
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		c.keys = append(c.keys, key)
	}
	sort.Slice(c.keys, func(i, j int) bool { return bytes.Compare(c.keys[i], c.keys[j]) < 0 })
	return c
}

// ---------------------------------------- collections ----------------------------------------

// Collection is a lazy query result. Nothing is read until ToArray.
type Collection struct {
	bundle  *Bundle
	index   string
	keys    [][]byte
	all     bool
	filters []func(models.Document) bool
	limit   int
	err     error
}

// TableName returns the name of the queried bundle
func (c *Collection) TableName() string {
	return c.bundle.Name
}

// Filter keeps only documents for which fn returns true
func (c *Collection) Filter(fn func(models.Document) bool) *Collection {
	next := c.clone()
	next.filters = append(next.filters, fn)
	return next
}

// Limit caps the number of documents returned
func (c *Collection) Limit(n int) *Collection {
	next := c.clone()
	next.limit = n
	return next
}

func (c *Collection) clone() *Collection {
	next := *c
	next.filters = append([]func(models.Document) bool(nil), c.filters...)
	return &next
}

// Count returns the number of matching documents
func (c *Collection) Count(ctx context.Context) (int, error) {
	docs, err := c.ToArray(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// First returns the first matching document, or nil
func (c *Collection) First(ctx context.Context) (models.Document, error) {
	docs, err := c.Limit(1).ToArray(ctx)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// ToArray runs the query and returns copies of the matching documents,
// ordered by index key then primary key.
func (c *Collection) ToArray(ctx context.Context) ([]models.Document, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := c.bundle
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids, err := c.matchingIDs()
	if err != nil {
		return nil, err
	}

	out := make([]models.Document, 0, len(ids))
	for i, id := range ids {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		doc := CloneDocument(b.documents[id])
		if !c.accept(doc) {
			continue
		}
		out = append(out, doc)
		if c.limit > 0 && len(out) >= c.limit {
			break
		}
	}

	b.logger.Debugf("Query on %s index %q returned %d documents", b.Name, c.index, len(out))
	return out, nil
}

func (c *Collection) accept(doc models.Document) bool {
	for _, fn := range c.filters {
		if !fn(doc) {
			return false
		}
	}
	return true
}

// matchingIDs resolves the query to encoded primary keys. Caller must hold the read lock.
func (c *Collection) matchingIDs() ([]string, error) {
	b := c.bundle
	if c.all {
		return b.sortedIDs(), nil
	}

	pk := &b.schema.PrimaryKey
	if c.index == PrimaryKeyIndex || (!pk.Outbound && c.index == pk.Name) {
		ids := make([]string, 0, len(c.keys))
		for _, key := range c.keys {
			if _, ok := b.documents[string(key)]; ok {
				ids = append(ids, string(key))
			}
		}
		return ids, nil
	}

	idx, ok := b.indexes[c.index]
	if !ok {
		return nil, fmt.Errorf("%w: bundle %s has no index %s", ErrIndexNotFound, b.Name, c.index)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, key := range c.keys {
		found := idx.Find(key)
		sort.Strings(found)
		for _, id := range found {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
