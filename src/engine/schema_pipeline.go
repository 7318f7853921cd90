package engine

import (
	"fmt"
	"sort"

	"syndrrel/src/models"
)

// BaseSchemaStepName is the step that turns cleaned store specs into schemas
const BaseSchemaStepName = "build-base-schema"

// SchemaBuild carries one schema version through the build pipeline.
// Steps that run before the base step may rewrite Specs; steps that run
// after it may annotate Schemas.
type SchemaBuild struct {
	Version int

	// Raw is the store spec exactly as passed to Stores
	Raw map[string]string

	// Specs is what the base step parses
	Specs map[string]string

	Schemas     map[string]*models.BundleSchema
	ForeignKeys map[string][]models.ForeignKey
}

// BundleNames returns the declared bundles in sorted order
func (b *SchemaBuild) BundleNames() []string {
	names := make([]string, 0, len(b.Specs))
	for name := range b.Specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaStep is one named stage of the schema build pipeline
type SchemaStep interface {
	Name() string
	Apply(build *SchemaBuild) error
}

// SchemaStepFunc adapts a function to SchemaStep
type SchemaStepFunc struct {
	StepName string
	Fn       func(build *SchemaBuild) error
}

func (s SchemaStepFunc) Name() string { return s.StepName }

func (s SchemaStepFunc) Apply(build *SchemaBuild) error { return s.Fn(build) }

// BaseSchemaStep parses every store spec with the engine's own grammar
func BaseSchemaStep() SchemaStep {
	return SchemaStepFunc{
		StepName: BaseSchemaStepName,
		Fn: func(build *SchemaBuild) error {
			if build.Schemas == nil {
				build.Schemas = make(map[string]*models.BundleSchema, len(build.Specs))
			}
			for _, name := range build.BundleNames() {
				schema, err := ParseStoreSpec(name, build.Specs[name])
				if err != nil {
					return err
				}
				build.Schemas[name] = schema
			}
			return nil
		},
	}
}

// UseSchemaSteps registers steps around the base step. Must be called before
// the schema version they should affect is applied.
func (db *Database) UseSchemaSteps(before, after []SchemaStep) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.beforeSteps = append(db.beforeSteps, before...)
	db.afterSteps = append(db.afterSteps, after...)
}

// SchemaSteps lists the pipeline in execution order
func (db *Database) SchemaSteps() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.beforeSteps)+len(db.afterSteps)+1)
	for _, step := range db.pipelineLocked() {
		names = append(names, step.Name())
	}
	return names
}

func (db *Database) pipelineLocked() []SchemaStep {
	steps := make([]SchemaStep, 0, len(db.beforeSteps)+len(db.afterSteps)+1)
	steps = append(steps, db.beforeSteps...)
	steps = append(steps, BaseSchemaStep())
	steps = append(steps, db.afterSteps...)
	return steps
}

// RunSchemaPipeline runs the steps in order over a fresh build
func RunSchemaPipeline(version int, specs map[string]string, steps []SchemaStep) (*SchemaBuild, error) {
	build := &SchemaBuild{
		Version:     version,
		Raw:         make(map[string]string, len(specs)),
		Specs:       make(map[string]string, len(specs)),
		Schemas:     make(map[string]*models.BundleSchema, len(specs)),
		ForeignKeys: make(map[string][]models.ForeignKey),
	}
	for name, spec := range specs {
		build.Raw[name] = spec
		build.Specs[name] = spec
	}

	for _, step := range steps {
		if err := step.Apply(build); err != nil {
			return nil, fmt.Errorf("schema step %s: %w", step.Name(), err)
		}
	}
	return build, nil
}
