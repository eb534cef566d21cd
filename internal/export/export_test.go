package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/object"
	"github.com/roach88/cloudrec/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCatalog(t *testing.T, keyless bool) *catalog.Catalog {
	t.Helper()
	person := ir.ObjectSchema{
		Name:       "Person",
		PrimaryKey: "id",
		Properties: []ir.Property{
			{Name: "id", Type: ir.TypeString},
			{Name: "name", Type: ir.TypeString},
		},
	}
	if keyless {
		person.PrimaryKey = ""
	}
	cat, err := catalog.New([]ir.ObjectSchema{
		{
			Name:       "Dog",
			PrimaryKey: "id",
			References: []string{"Person"},
			Properties: []ir.Property{
				{Name: "id", Type: ir.TypeString},
				{Name: "name", Type: ir.TypeString},
				{Name: "owner", Type: ir.TypeObject, ObjectType: "Person"},
			},
		},
		person,
	})
	require.NoError(t, err)
	return cat
}

func seed(t *testing.T, s *store.Store, cat *catalog.Catalog) {
	t.Helper()
	ctx := context.Background()
	alice := object.NewDynamic("Person").Set("id", "p1").Set("name", "Alice")
	require.NoError(t, s.PutObject(ctx, cat, alice))
	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d1").Set("name", "Rex").Set("owner", alice)))
	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d2").Set("name", "Fido")))
}

func TestRunExportsEveryType(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)
	seed(t, s, cat)
	ctx := context.Background()

	exp := New(s, mapper.New(cat, "alice"), WithGenerator(NewFixedGenerator("batch-1")))
	sum, err := exp.Run(ctx)
	require.NoError(t, err)

	hash, err := cat.Hash()
	require.NoError(t, err)

	assert.Equal(t, "batch-1", sum.BatchID)
	assert.Equal(t, hash, sum.SchemaHash)
	assert.Equal(t, 3, sum.Converted)
	assert.Equal(t, 3, sum.Changed)
	assert.Equal(t, 0, sum.Unchanged)
	assert.Equal(t, map[string]int{"Dog": 2, "Person": 1}, sum.PerType)

	rows, err := s.ListExports(ctx, mapper.ZoneFor("Dog", "alice"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "d1", rows[0].ID.RecordName)
	assert.Equal(t, "d2", rows[1].ID.RecordName)
	assert.Equal(t, int64(1), rows[0].Seq, "Dog sorts before Person")
	assert.Contains(t, rows[0].Body, `"record_name":"p1","zone_name":"_defaultZone","zone_owner":"alice"`)
	assert.NotContains(t, rows[1].Body, `"owner"`)

	batch, err := s.ListBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Len(t, batch, 3)
}

func TestRunIsIdempotent(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)
	seed(t, s, cat)
	ctx := context.Background()

	gen := NewFixedGenerator("batch-1", "batch-2", "batch-3")
	_, err := New(s, mapper.New(cat, ""), WithGenerator(gen)).Run(ctx)
	require.NoError(t, err)

	sum, err := New(s, mapper.New(cat, ""), WithGenerator(gen)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Converted)
	assert.Equal(t, 0, sum.Changed)
	assert.Equal(t, 3, sum.Unchanged)

	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Dog").Set("id", "d2").Set("name", "Fido II")))

	sum, err = New(s, mapper.New(cat, ""), WithGenerator(gen)).Run(ctx, "Dog")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Converted)
	assert.Equal(t, 1, sum.Changed)

	row, err := s.GetExport(ctx, ir.RecordID{RecordName: "d2", Zone: mapper.ZoneFor("Dog", ir.CurrentUserDefaultName)})
	require.NoError(t, err)
	assert.Equal(t, "batch-3", row.BatchID)
	assert.Contains(t, row.Body, "Fido II")
}

func TestRunResumesSeqFromStore(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)
	seed(t, s, cat)
	ctx := context.Background()

	gen := NewFixedGenerator("batch-1", "batch-2")
	_, err := New(s, mapper.New(cat, ""), WithGenerator(gen)).Run(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Person").Set("id", "p1").Set("name", "Alicia")))
	_, err = New(s, mapper.New(cat, ""), WithGenerator(gen)).Run(ctx, "Person")
	require.NoError(t, err)

	last, err := s.LastExportSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), last)
}

func TestRunRereadsSeqEachRun(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)
	seed(t, s, cat)
	ctx := context.Background()
	rename := func(name string) {
		require.NoError(t, s.PutObject(ctx, cat, object.NewDynamic("Person").Set("id", "p1").Set("name", name)))
	}

	first := New(s, mapper.New(cat, ""), WithGenerator(NewFixedGenerator("a-1", "a-2")))
	second := New(s, mapper.New(cat, ""), WithGenerator(NewFixedGenerator("b-1")))

	_, err := first.Run(ctx)
	require.NoError(t, err)
	rename("Alicia")
	_, err = second.Run(ctx, "Person")
	require.NoError(t, err)
	rename("Ali")
	_, err = first.Run(ctx, "Person")
	require.NoError(t, err)

	row, err := s.GetExport(ctx, mapper.New(cat, "").MustRecordID(object.NewDynamic("Person").Set("id", "p1")))
	require.NoError(t, err)
	assert.Equal(t, "a-2", row.BatchID)
	assert.Equal(t, int64(5), row.Seq)
}

func TestRunUnknownType(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)

	_, err := New(s, mapper.New(cat, "")).Run(context.Background(), "Cat")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnknownType)
}

func TestRunAbortsOnDefect(t *testing.T) {
	s := testStore(t)
	seed(t, s, testCatalog(t, false))

	keyless := testCatalog(t, true)
	sum, err := New(s, mapper.New(keyless, ""), WithGenerator(NewFixedGenerator("b"))).Run(context.Background())
	require.Error(t, err)

	d, ok := mapper.AsDefect(err)
	require.True(t, ok)
	assert.Equal(t, mapper.DefectNoPrimaryKey, d.Code)
	assert.Equal(t, "Person", d.RecordType)
	assert.Equal(t, 2, sum.Converted, "Dog records written before the defect")
}

func TestRunCancelled(t *testing.T) {
	s := testStore(t)
	cat := testCatalog(t, false)
	seed(t, s, cat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(s, mapper.New(cat, ""), WithGenerator(NewFixedGenerator("b")), WithClock(NewClock())).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
