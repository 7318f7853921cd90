package engine

import (
	"fmt"
	"strings"

	"syndrrel/src/models"
)

// ParseStoreSpec parses a store spec such as "++id, &email, *tags, [first+last]"
// into a bundle schema. The first token is always the primary key; an empty
// first token declares an outbound key.
func ParseStoreSpec(bundleName, spec string) (*models.BundleSchema, error) {
	tokens := strings.Split(spec, ",")

	schema := &models.BundleSchema{
		Name:        bundleName,
		IndexByName: make(map[string]*models.IndexSpec),
	}

	pk, err := parseIndexToken(strings.TrimSpace(tokens[0]))
	if err != nil {
		return nil, fmt.Errorf("bundle %s primary key: %w", bundleName, err)
	}
	if pk.MultiEntry {
		return nil, fmt.Errorf("%w: bundle %s: primary key cannot be multi-entry", ErrInvalidSpec, bundleName)
	}
	if pk.AutoIncrement && pk.Compound {
		return nil, fmt.Errorf("%w: bundle %s: compound primary key cannot auto-increment", ErrInvalidSpec, bundleName)
	}
	pk.Unique = true
	schema.PrimaryKey = *pk

	for _, token := range tokens[1:] {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		idx, err := parseIndexToken(token)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", bundleName, err)
		}
		switch {
		case idx.Outbound:
			return nil, fmt.Errorf("%w: bundle %s: empty index name", ErrInvalidSpec, bundleName)
		case idx.AutoIncrement:
			return nil, fmt.Errorf("%w: bundle %s: only the primary key can auto-increment (%s)", ErrInvalidSpec, bundleName, token)
		case idx.Compound && idx.MultiEntry:
			return nil, fmt.Errorf("%w: bundle %s: compound index cannot be multi-entry (%s)", ErrInvalidSpec, bundleName, token)
		}
		if _, dup := schema.IndexByName[idx.Name]; dup || idx.Name == schema.PrimaryKey.Name {
			return nil, fmt.Errorf("%w: bundle %s: index %s declared twice", ErrInvalidSpec, bundleName, idx.Name)
		}

		schema.Indexes = append(schema.Indexes, idx)
		schema.IndexByName[idx.Name] = idx
	}

	return schema, nil
}

func parseIndexToken(token string) (*models.IndexSpec, error) {
	if strings.Contains(token, "->") {
		return nil, fmt.Errorf("%w: relationship declaration %q reached the storage engine", ErrInvalidSpec, token)
	}

	idx := &models.IndexSpec{Src: token}
	name := token
	for {
		switch {
		case strings.HasPrefix(name, "++"):
			idx.AutoIncrement = true
			name = name[2:]
			continue
		case strings.HasPrefix(name, "&"):
			idx.Unique = true
			name = name[1:]
			continue
		case strings.HasPrefix(name, "*"):
			idx.MultiEntry = true
			name = name[1:]
			continue
		}
		break
	}
	name = strings.TrimSpace(name)

	if name == "" {
		if idx.Unique || idx.MultiEntry {
			return nil, fmt.Errorf("%w: modifier without index name in %q", ErrInvalidSpec, token)
		}
		idx.Outbound = true
		return idx, nil
	}

	idx.Name = name
	if strings.HasPrefix(name, "[") {
		if !strings.HasSuffix(name, "]") {
			return nil, fmt.Errorf("%w: unterminated compound index %q", ErrInvalidSpec, token)
		}
		idx.Compound = true
		for _, part := range strings.Split(name[1:len(name)-1], "+") {
			part = strings.TrimSpace(part)
			if part == "" {
				return nil, fmt.Errorf("%w: empty key path in compound index %q", ErrInvalidSpec, token)
			}
			idx.KeyPath = append(idx.KeyPath, part)
		}
		return idx, nil
	}

	idx.KeyPath = []string{name}
	return idx, nil
}

// indexValue extracts the value an index covers from a document. Compound
// indexes yield an array and require every key path to be present.
func indexValue(idx *models.IndexSpec, doc models.Document) (interface{}, bool) {
	if !idx.Compound {
		return models.ValueAt(doc, idx.KeyPath[0])
	}

	values := make([]interface{}, 0, len(idx.KeyPath))
	for _, path := range idx.KeyPath {
		v, ok := models.ValueAt(doc, path)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func samePrimaryKey(a, b *models.IndexSpec) bool {
	if a.Outbound != b.Outbound || a.AutoIncrement != b.AutoIncrement || a.Compound != b.Compound {
		return false
	}
	return strings.Join(a.KeyPath, "+") == strings.Join(b.KeyPath, "+")
}
