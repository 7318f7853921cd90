package relations

import (
	"sort"

	"syndrrel/src/engine"
	"syndrrel/src/models"

	"go.uber.org/zap"
)

// Names of the schema steps installed around the engine's base step
const (
	ParseStepName    = "parse-relationships"
	AnnotateStepName = "annotate-foreign-keys"
)

// AnnotateSchema records fks on the bundle schema and points each foreign key
// column's index back at its declaration. It returns the declared columns that
// are not indexed.
func AnnotateSchema(bundle string, schema *models.BundleSchema, fks []models.ForeignKey) []string {
	schema.ForeignKeys = make([]models.ForeignKey, len(fks))
	copy(schema.ForeignKeys, fks)

	var unindexed []string
	for i := range schema.ForeignKeys {
		fk := &schema.ForeignKeys[i]
		idx, ok := schema.Index(fk.Index)
		if !ok {
			unindexed = append(unindexed, fk.Index)
			continue
		}
		idx.ForeignKey = fk
	}
	return unindexed
}

// ParseRelationshipsStep strips relationship declarations from the store specs
// before the engine parses them.
func ParseRelationshipsStep() engine.SchemaStep {
	return engine.SchemaStepFunc{
		StepName: ParseStepName,
		Fn: func(build *engine.SchemaBuild) error {
			parsed := ParseSchema(build.Specs)
			build.Specs = parsed.Cleaned
			build.ForeignKeys = parsed.ForeignKeys
			return nil
		},
	}
}

// AnnotateForeignKeysStep attaches the parsed foreign keys to the schemas the
// engine built.
func AnnotateForeignKeysStep(logger *zap.SugaredLogger) engine.SchemaStep {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return engine.SchemaStepFunc{
		StepName: AnnotateStepName,
		Fn: func(build *engine.SchemaBuild) error {
			for _, name := range build.BundleNames() {
				schema, ok := build.Schemas[name]
				if !ok {
					continue
				}
				for _, column := range AnnotateSchema(name, schema, build.ForeignKeys[name]) {
					logger.Warnw("Foreign key column is not indexed and cannot be queried",
						"bundle", name,
						"column", column)
				}
				if len(schema.ForeignKeys) > 0 {
					logger.Debugf("Bundle %s declares %d foreign keys", name, len(schema.ForeignKeys))
				}
			}
			return nil
		},
	}
}

// InboundRelationship is a foreign key seen from the bundle it points at
type InboundRelationship struct {
	Table      string
	ForeignKey models.ForeignKey
}

// Registry exposes the relationships declared in the active schema
type Registry struct {
	catalog Catalog
}

// NewRegistry creates a registry over catalog
func NewRegistry(catalog Catalog) *Registry {
	return &Registry{catalog: catalog}
}

// Outbound returns the foreign keys declared by bundle, nil if the bundle is unknown
func (r *Registry) Outbound(bundle string) []models.ForeignKey {
	table, ok := r.catalog.Bundle(bundle)
	if !ok {
		return nil
	}
	schema := table.Schema()
	if schema == nil {
		return nil
	}
	return append([]models.ForeignKey{}, schema.ForeignKeys...)
}

// Inbound returns the foreign keys of other bundles that point at bundle,
// ordered by declaring bundle then declaration order
func (r *Registry) Inbound(bundle string) []InboundRelationship {
	names := r.catalog.BundleNames()
	sort.Strings(names)

	var out []InboundRelationship
	for _, name := range names {
		for _, fk := range r.Outbound(name) {
			if fk.TargetTable == bundle {
				out = append(out, InboundRelationship{Table: name, ForeignKey: fk})
			}
		}
	}
	return out
}

// ForeignKeys returns every bundle's declared foreign keys
func (r *Registry) ForeignKeys() map[string][]models.ForeignKey {
	out := make(map[string][]models.ForeignKey)
	for _, name := range r.catalog.BundleNames() {
		out[name] = r.Outbound(name)
	}
	return out
}
