package relations

import (
	"sort"

	"syndrrel/src/engine"
	"syndrrel/src/models"

	"github.com/goccy/go-json"
)

// ResolvedRow is a base document with related documents attached beside it.
// Attached columns are readable through Get but are not part of the document,
// so they are never enumerated, serialized or written back.
type ResolvedRow struct {
	record  models.Document
	related map[string]interface{}
}

// NewResolvedRow wraps record with no attached relationships
func NewResolvedRow(record models.Document) *ResolvedRow {
	return &ResolvedRow{
		record:  record,
		related: make(map[string]interface{}),
	}
}

// Record returns the base document
func (r *ResolvedRow) Record() models.Document {
	return r.record
}

// Keys returns the base document's field names
func (r *ResolvedRow) Keys() []string {
	return r.record.Keys()
}

// Get returns an attached relationship, falling back to the base field
func (r *ResolvedRow) Get(name string) (interface{}, bool) {
	if v, ok := r.related[name]; ok {
		return v, true
	}
	v, ok := r.record[name]
	return v, ok
}

// One returns a one-to-one relationship, nil if nothing matched
func (r *ResolvedRow) One(name string) models.Document {
	doc, _ := r.related[name].(models.Document)
	return doc
}

// Many returns a one-to-many relationship
func (r *ResolvedRow) Many(name string) []models.Document {
	docs, _ := r.related[name].([]models.Document)
	return docs
}

// Related returns the attached value under name
func (r *ResolvedRow) Related(name string) (interface{}, bool) {
	v, ok := r.related[name]
	return v, ok
}

// Relations lists the attached columns
func (r *ResolvedRow) Relations() []string {
	names := make([]string, 0, len(r.related))
	for name := range r.related {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set attaches value under name without touching the base document
func (r *ResolvedRow) Set(name string, value interface{}) {
	r.related[name] = value
}

// Unset removes the relationship attached under name
func (r *ResolvedRow) Unset(name string) {
	delete(r.related, name)
}

// MarshalJSON encodes the base document only
func (r *ResolvedRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.record)
}

// Expand returns a copy of the base document with every relationship merged in
func (r *ResolvedRow) Expand() models.Document {
	out := engine.CloneDocument(r.record)
	if out == nil {
		out = models.Document{}
	}
	for name, value := range r.related {
		switch v := value.(type) {
		case models.Document:
			if v == nil {
				out[name] = nil
				continue
			}
			out[name] = engine.CloneDocument(v)
		case []models.Document:
			docs := make([]models.Document, len(v))
			for i, doc := range v {
				docs[i] = engine.CloneDocument(doc)
			}
			out[name] = docs
		default:
			out[name] = v
		}
	}
	return out
}
