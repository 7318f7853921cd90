package engine

import (
	"context"
	"testing"

	"syndrrel/src/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, specs map[string]string, opts ...DatabaseOption) *Database {
	t.Helper()
	db := NewDatabase("test", opts...)
	require.NoError(t, db.Version(1).Stores(specs))
	t.Cleanup(func() { db.Close() })
	return db
}

func mustBundle(t *testing.T, db *Database, name string) *Bundle {
	t.Helper()
	b, ok := db.Bundle(name)
	require.True(t, ok, "bundle %s", name)
	return b
}

func TestBundleWrites(t *testing.T) {
	db := newTestDatabase(t, map[string]string{
		"users": "++id, &email, *tags, [first+last], address.city",
	})
	users := mustBundle(t, db, "users")

	t.Run("auto increment", func(t *testing.T) {
		key, err := users.Add(models.Document{
			"email":   "ringo@example.com",
			"tags":    []interface{}{"drums", "vocals"},
			"first":   "Ringo",
			"last":    "Starr",
			"address": map[string]interface{}{"city": "Liverpool"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), key)

		key, err = users.Add(models.Document{"email": "paul@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), key)

		doc, ok := users.Get(1)
		require.True(t, ok)
		assert.Equal(t, int64(1), doc["id"])
		assert.Equal(t, "ringo@example.com", doc["email"])

		_, ok = users.Get(1.0)
		assert.True(t, ok)
	})

	t.Run("explicit key bumps the counter", func(t *testing.T) {
		_, err := users.Add(models.Document{"id": 10, "email": "george@example.com"})
		require.NoError(t, err)

		key, err := users.Add(models.Document{"email": "john@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(11), key)
	})

	t.Run("unique constraint", func(t *testing.T) {
		_, err := users.Add(models.Document{"email": "paul@example.com"})
		assert.ErrorIs(t, err, ErrConstraint)

		_, err = users.Add(models.Document{"id": 1, "email": "other@example.com"})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("put replaces and re-indexes", func(t *testing.T) {
		_, err := users.Put(models.Document{"id": 2, "email": "macca@example.com"})
		require.NoError(t, err)

		old, err := users.Where("email").Equals("paul@example.com").ToArray(context.Background())
		require.NoError(t, err)
		assert.Empty(t, old)

		found, err := users.Where("email").Equals("macca@example.com").ToArray(context.Background())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.EqualValues(t, 2, found[0]["id"])
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		doc, ok := users.Get(1)
		require.True(t, ok)
		doc["email"] = "changed"
		doc["address"].(map[string]interface{})["city"] = "London"

		again, _ := users.Get(1)
		assert.Equal(t, "ringo@example.com", again["email"])
		assert.Equal(t, "Liverpool", again["address"].(map[string]interface{})["city"])
	})

	t.Run("bulk add is all or nothing", func(t *testing.T) {
		before := users.Count()
		_, err := users.BulkAdd([]models.Document{
			{"email": "a@example.com"},
			{"email": "a@example.com"},
		})
		assert.ErrorIs(t, err, ErrConstraint)
		assert.Equal(t, before, users.Count())

		keys, err := users.BulkAdd([]models.Document{
			{"email": "a@example.com"},
			{"email": "b@example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(12), int64(13)}, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, users.Delete(13))
		require.NoError(t, users.Delete(13))
		_, ok := users.Get(13)
		assert.False(t, ok)

		assert.ErrorIs(t, users.Delete(nil), ErrInvalidKey)
	})

	t.Run("invalid documents", func(t *testing.T) {
		_, err := users.Add(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)

		_, err = users.Add(models.Document{"id": true})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestBundleKeys(t *testing.T) {
	db := newTestDatabase(t, map[string]string{
		"notes":  "",
		"counts": "++",
		"bands":  "id, name",
	})

	t.Run("outbound keys", func(t *testing.T) {
		notes := mustBundle(t, db, "notes")

		key, err := notes.Add(models.Document{"text": "hello"})
		require.NoError(t, err)
		_, err = uuid.Parse(key.(string))
		assert.NoError(t, err)

		_, err = notes.Add(models.Document{"text": "explicit"}, "k1")
		require.NoError(t, err)
		doc, ok := notes.Get("k1")
		require.True(t, ok)
		assert.Equal(t, models.Document{"text": "explicit"}, doc)
	})

	t.Run("outbound auto increment", func(t *testing.T) {
		counts := mustBundle(t, db, "counts")
		k1, err := counts.Add(models.Document{"n": 1})
		require.NoError(t, err)
		k2, err := counts.Add(models.Document{"n": 2})
		require.NoError(t, err)
		assert.Equal(t, int64(1), k1)
		assert.Equal(t, int64(2), k2)
	})

	t.Run("integer keys beyond float precision", func(t *testing.T) {
		bands := mustBundle(t, db, "bands")
		_, err := bands.Add(models.Document{"id": int64(9007199254740992), "name": "first"})
		require.NoError(t, err)
		_, err = bands.Add(models.Document{"id": int64(9007199254740993), "name": "second"})
		require.NoError(t, err)

		doc, ok := bands.Get(int64(9007199254740993))
		require.True(t, ok)
		assert.Equal(t, "second", doc["name"])
		doc, ok = bands.Get(float64(9007199254740992))
		require.True(t, ok)
		assert.Equal(t, "first", doc["name"])
	})

	t.Run("inbound key required", func(t *testing.T) {
		bands := mustBundle(t, db, "bands")
		_, err := bands.Add(models.Document{"name": "Beatles"})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, map[string]string{
		"bands":  "id, name",
		"albums": "id, name, bandId, *genres, [bandId+year]",
	})
	albums := mustBundle(t, db, "albums")

	_, err := albums.BulkAdd([]models.Document{
		{"id": 4, "name": "Abbey Road", "bandId": 1, "year": 1969, "genres": []interface{}{"rock", "pop"}},
		{"id": 1, "name": "Arrival", "bandId": 2, "year": 1976, "genres": []interface{}{"pop"}},
		{"id": 2, "name": "Let It Be", "bandId": 1, "year": 1970, "genres": []interface{}{"rock"}},
		{"id": 3, "name": "Waterloo", "bandId": 2, "year": 1974},
	})
	require.NoError(t, err)

	ids := func(docs []models.Document) []interface{} {
		out := make([]interface{}, 0, len(docs))
		for _, d := range docs {
			out = append(out, d["id"])
		}
		return out
	}

	t.Run("whole bundle in primary key order", func(t *testing.T) {
		docs, err := albums.ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2, 3, 4}, ids(docs))
	})

	t.Run("any of orders by index key then primary key", func(t *testing.T) {
		docs, err := albums.Where("bandId").AnyOf(2, 1, 2.0).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{2, 4, 1, 3}, ids(docs))
	})

	t.Run("primary key queries", func(t *testing.T) {
		docs, err := albums.Where("id").AnyOf(3, 99, 1).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 3}, ids(docs))

		docs, err = albums.Where(PrimaryKeyIndex).Equals(4).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{4}, ids(docs))
	})

	t.Run("multi entry index", func(t *testing.T) {
		docs, err := albums.Where("genres").AnyOf("pop", "rock").ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 4, 2}, ids(docs))
	})

	t.Run("compound index", func(t *testing.T) {
		docs, err := albums.Where("[bandId+year]").Equals([]interface{}{1, 1970}).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{2}, ids(docs))
	})

	t.Run("empty any of", func(t *testing.T) {
		docs, err := albums.Where("bandId").AnyOf().ToArray(ctx)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("filter limit first count", func(t *testing.T) {
		byBeatles := albums.Where("bandId").Equals(1)
		docs, err := byBeatles.Filter(func(d models.Document) bool { return d["year"] == 1970 }).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{2}, ids(docs))

		docs, err = albums.ToCollection().Limit(2).ToArray(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2}, ids(docs))

		first, err := byBeatles.First(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, first["id"])

		n, err := byBeatles.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		assert.Equal(t, "albums", byBeatles.TableName())
	})

	t.Run("missing index surfaces at ToArray", func(t *testing.T) {
		c := albums.Where("label").Equals("EMI")
		_, err := c.ToArray(ctx)
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := albums.Where("bandId").AnyOf(1, nil).ToArray(ctx)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := albums.ToArray(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
