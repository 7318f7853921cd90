package relations

import (
	"strings"
	"testing"

	"syndrrel/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	t.Run("strips relationship targets", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{
			"bands":  "id, name",
			"albums": "id, name, bandId -> bands.id",
		})

		assert.Equal(t, "id, name", parsed.Cleaned["bands"])
		assert.Equal(t, "id, name, bandId", parsed.Cleaned["albums"])

		assert.NotNil(t, parsed.ForeignKeys["bands"])
		assert.Empty(t, parsed.ForeignKeys["bands"])
		assert.Equal(t, []models.ForeignKey{
			{Index: "bandId", TargetTable: "bands", TargetIndex: "id"},
		}, parsed.ForeignKeys["albums"])
	})

	t.Run("whitespace and newlines are insignificant", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{
			"albums": "\n  id,\n  bandId   ->   bands . id ,\n  labelId->labels.id,\n",
		})
		assert.Equal(t, "id, bandId, labelId", parsed.Cleaned["albums"])
		assert.Equal(t, []models.ForeignKey{
			{Index: "bandId", TargetTable: "bands", TargetIndex: "id"},
			{Index: "labelId", TargetTable: "labels", TargetIndex: "id"},
		}, parsed.ForeignKeys["albums"])
	})

	t.Run("self reference", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{"nodes": "id, name, parentId -> parent.id"})
		assert.Equal(t, "id, name, parentId", parsed.Cleaned["nodes"])
	})

	t.Run("modifiers stay in the cleaned spec", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{"albums": "++id, *bandIds -> bands.id, &isrc"})
		assert.Equal(t, "++id, *bandIds, &isrc", parsed.Cleaned["albums"])
		require.Len(t, parsed.ForeignKeys["albums"], 1)
		assert.Equal(t, "bandIds", parsed.ForeignKeys["albums"][0].Index)
	})

	t.Run("foreign key index drops modifiers and empty tokens are skipped", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{"posts": "id,, *tags -> x.id, ,&slug -> y.slug"})
		assert.Equal(t, "id, *tags, &slug", parsed.Cleaned["posts"])
		assert.Equal(t, []models.ForeignKey{
			{Index: "tags", TargetTable: "x", TargetIndex: "id"},
			{Index: "slug", TargetTable: "y", TargetIndex: "slug"},
		}, parsed.ForeignKeys["posts"])
	})

	t.Run("outbound primary key is kept", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{"notes": ", bandId -> bands.id", "empty": ""})
		assert.Equal(t, ", bandId", parsed.Cleaned["notes"])
		assert.Equal(t, "", parsed.Cleaned["empty"])
		assert.NotNil(t, parsed.ForeignKeys["empty"])
	})

	t.Run("malformed targets are deferred", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{"albums": "id, bandId -> bands, x -> a.b -> c.d"})
		assert.Equal(t, "id, bandId, x", parsed.Cleaned["albums"])
		assert.Equal(t, []models.ForeignKey{
			{Index: "bandId", TargetTable: "bands", TargetIndex: ""},
			{Index: "x", TargetTable: "a", TargetIndex: "b -> c.d"},
		}, parsed.ForeignKeys["albums"])
	})

	t.Run("cleaned specs never contain the marker", func(t *testing.T) {
		parsed := ParseSchema(map[string]string{
			"a": "id, b -> b.id, c -> c.id",
			"b": "++id,x->a.id",
			"c": "id",
		})
		for name, spec := range parsed.Cleaned {
			assert.False(t, strings.Contains(spec, RelationshipMarker), name)
		}
	})
}
