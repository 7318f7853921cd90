package models

import (
	"sort"
	"strings"
)

// Document is a single record stored in a bundle, similar to a row in a table.
// Only the fields of a Document are ever persisted.
type Document map[string]interface{}

// Keys returns the field names of the document in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForeignKey declares that a bundle's column Index refers to TargetTable's
// column TargetIndex.
type ForeignKey struct {
	Index       string `bson:"index" json:"index" yaml:"index"`
	TargetTable string `bson:"targetTable" json:"targetTable" yaml:"targetTable"`
	TargetIndex string `bson:"targetIndex" json:"targetIndex" yaml:"targetIndex"`
}

// IndexSpec describes one index (or the primary key) of a bundle.
type IndexSpec struct {
	// Name is the index name as declared, e.g. "email" or "[first+last]".
	Name string

	// KeyPath holds one dotted path, or several for a compound index.
	KeyPath []string

	Unique        bool
	MultiEntry    bool
	AutoIncrement bool
	Compound      bool

	// Outbound is set on a primary key that is not stored inside the document.
	Outbound bool

	// Src is the declaration the index was built from, e.g. "&email".
	Src string

	// ForeignKey is set when this column is declared as a relationship.
	ForeignKey *ForeignKey
}

// BundleSchema is the parsed schema of one bundle for the active version.
type BundleSchema struct {
	Name        string
	PrimaryKey  IndexSpec
	Indexes     []*IndexSpec
	IndexByName map[string]*IndexSpec

	// ForeignKeys is nil when the bundle was never annotated with
	// relationship metadata.
	ForeignKeys []ForeignKey
}

// Index returns the named secondary index or the primary key.
func (s *BundleSchema) Index(name string) (*IndexSpec, bool) {
	if idx, ok := s.IndexByName[name]; ok {
		return idx, true
	}
	if !s.PrimaryKey.Outbound && s.PrimaryKey.Name == name {
		return &s.PrimaryKey, true
	}
	return nil, false
}

// Spec renders the schema back into store spec syntax.
func (s *BundleSchema) Spec() string {
	parts := make([]string, 0, len(s.Indexes)+1)
	parts = append(parts, s.PrimaryKey.Src)
	for _, idx := range s.Indexes {
		parts = append(parts, idx.Src)
	}
	return strings.Join(parts, ", ")
}

// ValueAt resolves a dotted key path inside a document.
func ValueAt(doc Document, keyPath string) (interface{}, bool) {
	if doc == nil {
		return nil, false
	}
	if v, ok := doc[keyPath]; ok || !strings.Contains(keyPath, ".") {
		return v, ok
	}

	var current interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(keyPath, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case Document:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// SetValueAt writes a value at a dotted key path, creating nested documents.
func SetValueAt(doc Document, keyPath string, value interface{}) {
	parts := strings.Split(keyPath, ".")
	current := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			if d, isDoc := current[part].(Document); isDoc {
				next = d
			} else {
				next = make(map[string]interface{})
				current[part] = next
			}
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
