package relations

import (
	"strings"

	"syndrrel/src/models"
)

// RelationshipMarker separates a column from its target in a store spec token
const RelationshipMarker = "->"

// ParsedSchema is the result of ParseSchema
type ParsedSchema struct {
	// Cleaned holds the store specs with relationship targets removed
	Cleaned map[string]string

	// ForeignKeys holds the declared relationships per bundle in declaration
	// order. Every bundle has an entry.
	ForeignKeys map[string][]models.ForeignKey
}

// ParseSchema extracts "column -> bundle.column" declarations from store specs.
// It never fails; malformed declarations surface when a relationship is planned.
func ParseSchema(raw map[string]string) ParsedSchema {
	parsed := ParsedSchema{
		Cleaned:     make(map[string]string, len(raw)),
		ForeignKeys: make(map[string][]models.ForeignKey, len(raw)),
	}

	for bundle, spec := range raw {
		tokens := strings.Split(spec, ",")
		cleaned := make([]string, 0, len(tokens))
		foreignKeys := make([]models.ForeignKey, 0)

		for i, token := range tokens {
			token = strings.TrimSpace(token)
			// The first token is the primary key and may be empty
			if token == "" && i > 0 {
				continue
			}

			column, target, found := strings.Cut(token, RelationshipMarker)
			if !found {
				cleaned = append(cleaned, token)
				continue
			}

			column = strings.TrimSpace(column)
			cleaned = append(cleaned, column)

			table, index, _ := strings.Cut(strings.TrimSpace(target), ".")
			foreignKeys = append(foreignKeys, models.ForeignKey{
				Index:       strings.TrimLeft(column, "+&*"),
				TargetTable: strings.TrimSpace(table),
				TargetIndex: strings.TrimSpace(index),
			})
		}

		parsed.Cleaned[bundle] = strings.Join(cleaned, ", ")
		parsed.ForeignKeys[bundle] = foreignKeys
	}

	return parsed
}
