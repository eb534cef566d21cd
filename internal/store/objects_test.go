package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/object"
)

func TestPutObject_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	born := time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)
	asset := ir.IRAsset{FileURL: "file:///a.asset", Checksum: "abc", Size: 3}
	dog := object.NewDynamic("Dog").
		Set("id", "d1").
		Set("name", "Rex").
		Set("age", 7).
		Set("good", true).
		Set("born", born).
		Set("weight", 12.5).
		Set("photo", []byte{1, 2}).
		Set("avatar", object.NewAsset(asset)).
		Set("owner", object.NewDynamic("Person").Set("id", "p1"))

	require.NoError(t, s.PutObject(ctx, cat, dog))

	got, err := s.GetObject(ctx, "Dog", "d1")
	require.NoError(t, err)

	assert.Equal(t, "Dog", got.ObjectType())
	for name, want := range map[string]any{
		"id":     "d1",
		"name":   "Rex",
		"age":    int64(7),
		"good":   true,
		"born":   born,
		"weight": 12.5,
		"photo":  []byte{1, 2},
	} {
		v, ok := got.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v, name)
	}

	v, _ := got.Get("avatar")
	a, ok := v.(*object.Asset)
	require.True(t, ok)
	assert.Equal(t, asset, a.Ref())

	v, _ = got.Get("owner")
	owner, ok := v.(object.Object)
	require.True(t, ok)
	assert.Equal(t, "Person", owner.ObjectType())
	key, _ := owner.Get("id")
	assert.Equal(t, "p1", key)

	_, ok = got.Get("friends")
	assert.False(t, ok, "properties the object did not hold stay absent")
}

func TestPutObject_NilValuesAreKept(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()
	var nilAsset *object.Asset

	dog := object.NewDynamic("Dog").Set("id", "d1").Set("name", nil).Set("avatar", nilAsset)
	require.NoError(t, s.PutObject(ctx, cat, dog))

	got, err := s.GetObject(ctx, "Dog", "d1")
	require.NoError(t, err)

	for _, name := range []string{"name", "avatar"} {
		v, ok := got.Get(name)
		assert.True(t, ok, name)
		assert.Nil(t, v, name)
	}
}

func TestPutObject_LinksPreserveResolvability(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	friends := object.List{
		object.NewDynamic("Dog").Set("id", "a"),
		object.NewDynamic("Dog"),
		nil,
		object.NewDynamic("Ticket").Set("number", 9),
	}
	dog := object.NewDynamic("Dog").Set("id", "d1").Set("friends", friends)
	require.NoError(t, s.PutObject(ctx, cat, dog))

	got, err := s.GetObject(ctx, "Dog", "d1")
	require.NoError(t, err)

	v, _ := got.Get("friends")
	list, ok := v.(object.List)
	require.True(t, ok)
	require.Len(t, list, 4)

	key, ok := list[0].Get("id")
	assert.True(t, ok)
	assert.Equal(t, "a", key)

	_, ok = list[1].Get("id")
	assert.False(t, ok, "keyless member stays keyless")

	assert.Nil(t, list[2])

	number, _ := list[3].Get("number")
	assert.Equal(t, int64(9), number, "integer keys keep their type")
}

func TestPutObject_IntegerKey(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Ticket").Set("number", 42)))

	got, err := s.GetObject(ctx, "Ticket", "42")
	require.NoError(t, err)
	v, _ := got.Get("number")
	assert.Equal(t, int64(42), v)
}

func TestPutObject_Errors(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	err := s.PutObject(ctx, cat, object.NewDynamic("Cat").Set("id", "c1"))
	require.Error(t, err)

	err = s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", 4.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary key")
}

func TestPutObject_UnstorableScalarsConvertLikeTheObject(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	m := mapper.New(cat, "alice")
	ctx := context.Background()

	tests := []struct {
		name     string
		property string
		value    any
	}{
		{"nan", "weight", math.NaN()},
		{"positive infinity", "weight", math.Inf(1)},
		{"negative infinity", "weight", float32(math.Inf(-1))},
		{"uint64 overflow", "age", uint64(math.MaxUint64)},
		{"nil bytes", "photo", []byte(nil)},
		{"struct", "name", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dog := object.NewDynamic("Dog").Set("id", "d1").Set(tt.property, tt.value)
			require.NoError(t, s.PutObject(ctx, cat, dog))

			stored, err := s.GetObject(ctx, "Dog", "d1")
			require.NoError(t, err)
			_, held := stored.Get(tt.property)
			assert.False(t, held)

			direct, err := m.Record(dog)
			require.NoError(t, err)
			fromStore, err := m.Record(stored)
			require.NoError(t, err)

			_, ok := fromStore.Lookup(tt.property)
			assert.False(t, ok, "%s is unset", tt.property)
			assert.True(t, direct.Equal(fromStore))
		})
	}
}

func TestPutObject_Replaces(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d1").Set("name", "Rex")))
	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d1").Set("name", "Max")))

	n, err := s.CountObjects(ctx, "Dog")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetObject(ctx, "Dog", "d1")
	require.NoError(t, err)
	name, _ := got.Get("name")
	assert.Equal(t, "Max", name)
}

func TestListObjects_Ordering(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", id)))
	}
	// Rewriting moves an object to the end
	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "c")))

	dogs, err := s.ListObjects(ctx, "Dog")
	require.NoError(t, err)

	var ids []any
	for _, d := range dogs {
		id, _ := d.Get("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []any{"a", "b", "c"}, ids)

	people, err := s.ListObjects(ctx, "Person")
	require.NoError(t, err)
	assert.NotNil(t, people)
	assert.Empty(t, people)
}

func TestGetObject_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetObject(context.Background(), "Dog", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeleteObject(t *testing.T) {
	s := createTestStore(t)
	cat := createTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d1")))

	deleted, err := s.DeleteObject(ctx, "Dog", "d1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteObject(ctx, "Dog", "d1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAssets(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := ir.IRAsset{FileURL: "file:///x.asset", Checksum: "x", Size: 10}

	require.NoError(t, s.PutAsset(ctx, a))
	require.NoError(t, s.PutAsset(ctx, a), "second write is ignored")

	got, err := s.GetAsset(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = s.GetAsset(ctx, "y")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
