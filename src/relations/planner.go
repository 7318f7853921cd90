package relations

import (
	"fmt"

	"syndrrel/src/models"
)

// ResolvedForeignTable is one planned batch fetch.
// Documents of TableName are fetched by Index using the values found at
// TargetIndex in the base rows, and attached under Column.
type ResolvedForeignTable struct {
	Column      string
	Index       string
	TableName   string
	TargetIndex string
	OneToOne    bool
}

// Plan resolves every include of spec against the declared foreign keys.
// It performs no I/O and fails on the first include that cannot be resolved.
func Plan(baseName string, baseSchema *models.BundleSchema, spec Spec, catalog Catalog) ([]ResolvedForeignTable, error) {
	plans := make([]ResolvedForeignTable, 0, len(spec))
	columns := make(map[string]bool, len(spec))

	for _, inc := range spec {
		if inc.Column == "" || inc.Target == "" {
			return nil, &SchemaError{Table: baseName, Err: fmt.Errorf("%w: empty include", ErrInvalidSpec)}
		}
		if columns[inc.Column] {
			return nil, &SchemaError{Table: baseName, Err: fmt.Errorf("%w: column %s is included twice", ErrInvalidSpec, inc.Column)}
		}
		columns[inc.Column] = true

		plan, err := planInclude(baseName, baseSchema, inc, catalog)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func planInclude(baseName string, baseSchema *models.BundleSchema, inc Include, catalog Catalog) (ResolvedForeignTable, error) {
	// A local foreign key column wins over a bundle of the same name
	if baseSchema != nil {
		if idx, ok := baseSchema.Index(inc.Target); ok && idx.ForeignKey != nil {
			fk := *idx.ForeignKey
			if err := checkForeignKey(fk); err != nil {
				return ResolvedForeignTable{}, &SchemaError{Table: baseName, Err: err}
			}
			if _, ok := catalog.Bundle(fk.TargetTable); !ok {
				return ResolvedForeignTable{}, &SchemaError{Table: fk.TargetTable, Err: ErrTableNotFound}
			}
			return ResolvedForeignTable{
				Column:      inc.Column,
				Index:       fk.TargetIndex,
				TableName:   fk.TargetTable,
				TargetIndex: fk.Index,
				OneToOne:    true,
			}, nil
		}
	}

	related, ok := catalog.Bundle(inc.Target)
	if !ok {
		return ResolvedForeignTable{}, &SchemaError{Table: inc.Target, Err: ErrTableNotFound}
	}
	schema := related.Schema()
	if schema == nil || len(schema.ForeignKeys) == 0 {
		return ResolvedForeignTable{}, &SchemaError{Table: inc.Target, Err: ErrNoForeignKeys}
	}

	for _, fk := range schema.ForeignKeys {
		if fk.TargetTable != baseName {
			continue
		}
		if err := checkForeignKey(fk); err != nil {
			return ResolvedForeignTable{}, &SchemaError{Table: inc.Target, Err: err}
		}
		return ResolvedForeignTable{
			Column:      inc.Column,
			Index:       fk.Index,
			TableName:   inc.Target,
			TargetIndex: fk.TargetIndex,
			OneToOne:    false,
		}, nil
	}

	return ResolvedForeignTable{}, &SchemaError{
		Table: inc.Target,
		Err:   fmt.Errorf("%w %s", ErrNoMatchingForeignKey, baseName),
	}
}

func checkForeignKey(fk models.ForeignKey) error {
	if fk.Index == "" || fk.TargetTable == "" || fk.TargetIndex == "" {
		return fmt.Errorf("%w: %q -> %q.%q", ErrMalformedForeignKey, fk.Index, fk.TargetTable, fk.TargetIndex)
	}
	return nil
}
