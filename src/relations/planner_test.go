package relations

import (
	"errors"
	"testing"

	"syndrrel/src/engine"
	"syndrrel/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func musicDatabase(t *testing.T) (*engine.Database, *Relationships) {
	t.Helper()
	db := engine.NewDatabase("music")
	rel := Install(db)
	require.NoError(t, db.Version(1).Stores(map[string]string{
		"bands":  "id, name",
		"albums": "id, name, bandId -> bands.id",
		"labels": "id, name",
		"broken": "id, bandId -> bands",
	}))
	t.Cleanup(func() { db.Close() })
	return db, rel
}

func schemaOf(t *testing.T, db *engine.Database, name string) *models.BundleSchema {
	t.Helper()
	b, ok := db.Bundle(name)
	require.True(t, ok)
	return b.Schema()
}

func TestPlan(t *testing.T) {
	db, _ := musicDatabase(t)
	catalog := NewCatalog(db)

	t.Run("related bundle is one to many", func(t *testing.T) {
		plans, err := Plan("bands", schemaOf(t, db, "bands"), Spec{{Column: "albums", Target: "albums"}}, catalog)
		require.NoError(t, err)
		assert.Equal(t, []ResolvedForeignTable{{
			Column:      "albums",
			Index:       "bandId",
			TableName:   "albums",
			TargetIndex: "id",
			OneToOne:    false,
		}}, plans)
	})

	t.Run("local foreign key column is one to one", func(t *testing.T) {
		plans, err := Plan("albums", schemaOf(t, db, "albums"), Spec{{Column: "band", Target: "bandId"}}, catalog)
		require.NoError(t, err)
		assert.Equal(t, []ResolvedForeignTable{{
			Column:      "band",
			Index:       "id",
			TableName:   "bands",
			TargetIndex: "bandId",
			OneToOne:    true,
		}}, plans)
	})

	t.Run("plans follow spec order", func(t *testing.T) {
		plans, err := Plan("albums", schemaOf(t, db, "albums"), Spec{
			{Column: "b", Target: "bandId"},
			{Column: "a", Target: "bandId"},
		}, catalog)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "b", plans[0].Column)
		assert.Equal(t, "a", plans[1].Column)
	})

	t.Run("empty spec", func(t *testing.T) {
		plans, err := Plan("bands", schemaOf(t, db, "bands"), nil, catalog)
		require.NoError(t, err)
		assert.Empty(t, plans)
	})

	t.Run("unknown bundle", func(t *testing.T) {
		_, err := Plan("bands", schemaOf(t, db, "bands"), Spec{{Column: "x", Target: "not_a_table"}}, catalog)
		assert.ErrorIs(t, err, ErrTableNotFound)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, "not_a_table", schemaErr.Table)
		assert.Contains(t, err.Error(), "not_a_table")
	})

	t.Run("bundle without foreign keys", func(t *testing.T) {
		_, err := Plan("bands", schemaOf(t, db, "bands"), Spec{{Column: "labels", Target: "labels"}}, catalog)
		assert.ErrorIs(t, err, ErrNoForeignKeys)
		assert.Contains(t, err.Error(), "labels")
	})

	t.Run("no foreign key points at the base", func(t *testing.T) {
		_, err := Plan("labels", schemaOf(t, db, "labels"), Spec{{Column: "albums", Target: "albums"}}, catalog)
		assert.ErrorIs(t, err, ErrNoMatchingForeignKey)
		assert.Contains(t, err.Error(), "labels")
	})

	t.Run("malformed foreign key", func(t *testing.T) {
		_, err := Plan("broken", schemaOf(t, db, "broken"), Spec{{Column: "band", Target: "bandId"}}, catalog)
		assert.ErrorIs(t, err, ErrMalformedForeignKey)

		_, err = Plan("bands", schemaOf(t, db, "bands"), Spec{{Column: "broken", Target: "broken"}}, catalog)
		assert.ErrorIs(t, err, ErrMalformedForeignKey)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := Plan("bands", schemaOf(t, db, "bands"), Spec{
			{Column: "albums", Target: "albums"},
			{Column: "albums", Target: "albums"},
		}, catalog)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})

	t.Run("nil schema falls back to bundle lookup", func(t *testing.T) {
		plans, err := Plan("bands", nil, Spec{{Column: "albums", Target: "albums"}}, catalog)
		require.NoError(t, err)
		assert.False(t, plans[0].OneToOne)
	})
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec(`albums=albums, band = "bandId", labels`)
	require.NoError(t, err)
	assert.Equal(t, Spec{
		{Column: "albums", Target: "albums"},
		{Column: "band", Target: "bandId"},
		{Column: "labels", Target: "labels"},
	}, spec)
	assert.Equal(t, "albums=albums, band=bandId, labels=labels", spec.String())

	spec, err = ParseSpec("  ")
	require.NoError(t, err)
	assert.Empty(t, spec)

	_, err = ParseSpec("albums=")
	assert.ErrorIs(t, err, ErrInvalidSpec)
	_, err = ParseSpec("a=x, a=y")
	assert.ErrorIs(t, err, ErrInvalidSpec)

	assert.Equal(t, Spec{
		{Column: "albums", Target: "albums"},
		{Column: "band", Target: "bandId"},
	}, SpecFromMap(map[string]string{"band": "bandId", "albums": "albums"}))
}
