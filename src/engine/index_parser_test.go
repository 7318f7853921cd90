package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoreSpec(t *testing.T) {
	t.Run("full grammar", func(t *testing.T) {
		schema, err := ParseStoreSpec("users", "++id, &email, *tags, [first+last], address.city")
		require.NoError(t, err)

		assert.Equal(t, "users", schema.Name)
		assert.Equal(t, "id", schema.PrimaryKey.Name)
		assert.True(t, schema.PrimaryKey.AutoIncrement)
		assert.False(t, schema.PrimaryKey.Outbound)
		assert.Equal(t, []string{"id"}, schema.PrimaryKey.KeyPath)

		require.Len(t, schema.Indexes, 4)
		assert.True(t, schema.IndexByName["email"].Unique)
		assert.True(t, schema.IndexByName["tags"].MultiEntry)

		compound := schema.IndexByName["[first+last]"]
		require.NotNil(t, compound)
		assert.True(t, compound.Compound)
		assert.Equal(t, []string{"first", "last"}, compound.KeyPath)

		assert.Equal(t, []string{"address.city"}, schema.IndexByName["address.city"].KeyPath)
		assert.NotContains(t, schema.IndexByName, "id")
	})

	t.Run("whitespace and trailing commas", func(t *testing.T) {
		schema, err := ParseStoreSpec("bands", "\n  id,\n  name ,\n")
		require.NoError(t, err)
		assert.Equal(t, "id", schema.PrimaryKey.Name)
		assert.Len(t, schema.Indexes, 1)
		assert.Equal(t, "id, name", schema.Spec())
	})

	t.Run("outbound primary key", func(t *testing.T) {
		schema, err := ParseStoreSpec("notes", "")
		require.NoError(t, err)
		assert.True(t, schema.PrimaryKey.Outbound)
		assert.Empty(t, schema.Indexes)

		schema, err = ParseStoreSpec("notes", "++, title")
		require.NoError(t, err)
		assert.True(t, schema.PrimaryKey.Outbound)
		assert.True(t, schema.PrimaryKey.AutoIncrement)
		assert.Contains(t, schema.IndexByName, "title")

		_, ok := schema.Index("")
		assert.False(t, ok)
	})

	t.Run("Index resolves the primary key", func(t *testing.T) {
		schema, err := ParseStoreSpec("bands", "id, name")
		require.NoError(t, err)

		idx, ok := schema.Index("id")
		require.True(t, ok)
		assert.Same(t, &schema.PrimaryKey, idx)

		_, ok = schema.Index("genre")
		assert.False(t, ok)
	})

	t.Run("invalid specs", func(t *testing.T) {
		for _, spec := range []string{
			"id, bandId -> bands.id",
			"*id",
			"++[a+b]",
			"id, ++counter",
			"id, name, name",
			"id, id",
			"id, [first+",
			"id, [first+]",
			"id, *[a+b]",
			"id, &",
		} {
			_, err := ParseStoreSpec("bad", spec)
			assert.ErrorIs(t, err, ErrInvalidSpec, spec)
		}
	})
}

func TestSamePrimaryKey(t *testing.T) {
	a, err := ParseStoreSpec("x", "++id, name")
	require.NoError(t, err)
	b, err := ParseStoreSpec("x", "++id, email")
	require.NoError(t, err)
	c, err := ParseStoreSpec("x", "id")
	require.NoError(t, err)

	assert.True(t, samePrimaryKey(&a.PrimaryKey, &b.PrimaryKey))
	assert.False(t, samePrimaryKey(&a.PrimaryKey, &c.PrimaryKey))
}
