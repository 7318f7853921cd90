package relations

import (
	"testing"

	"syndrrel/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedRow(t *testing.T) {
	row := NewResolvedRow(models.Document{"id": 1, "name": "Beatles", "albums": "base field"})
	row.Set("albums", []models.Document{{"id": 1, "name": "Abbey Road"}})
	row.Set("label", models.Document{"name": "EMI"})

	assert.Equal(t, []string{"albums", "id", "name"}, row.Keys())
	assert.Equal(t, []string{"albums", "label"}, row.Relations())

	v, ok := row.Get("albums")
	require.True(t, ok)
	assert.IsType(t, []models.Document{}, v)
	assert.Equal(t, "EMI", row.One("label")["name"])
	assert.Nil(t, row.One("albums"))
	assert.Nil(t, row.Many("label"))

	t.Run("unset falls back to the document", func(t *testing.T) {
		row.Unset("albums")
		v, ok := row.Get("albums")
		require.True(t, ok)
		assert.Equal(t, "base field", v)

		_, ok = row.Related("albums")
		assert.False(t, ok)
	})

	t.Run("expand copies", func(t *testing.T) {
		expanded := row.Expand()
		label := expanded["label"].(models.Document)
		label["name"] = "Apple"
		assert.Equal(t, "EMI", row.One("label")["name"])
		assert.Equal(t, "Beatles", expanded["name"])
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := row.Get("nothing")
		assert.False(t, ok)
	})
}
