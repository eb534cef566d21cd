package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cloudrec/internal/ir"
)

func testExportRow(name, tag string, seq int64) ExportRow {
	return ExportRow{
		ID: ir.RecordID{
			RecordName: name,
			Zone:       ir.ZoneID{Name: "DogsZone", Owner: "alice"},
		},
		RecordType: "Dog",
		ChangeTag:  tag,
		Body:       `{"record_type":"Dog"}`,
		BatchID:    "batch-1",
		SchemaHash: "schema",
		Seq:        seq,
	}
}

func TestUpsertExport_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	changed, err := s.UpsertExport(ctx, testExportRow("d1", "tag1", 1))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.UpsertExport(ctx, testExportRow("d1", "tag1", 2))
	require.NoError(t, err)
	assert.False(t, changed, "same change tag is a no-op")

	got, err := s.GetExport(ctx, testExportRow("d1", "", 0).ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq, "untouched row keeps its seq")
}

func TestUpsertExport_Updates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertExport(ctx, testExportRow("d1", "tag1", 1))
	require.NoError(t, err)

	row := testExportRow("d1", "tag2", 2)
	row.BatchID = "batch-2"
	changed, err := s.UpsertExport(ctx, row)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.GetExport(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row, got)

	all, err := s.ListExports(ctx, row.ID.Zone)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListExports(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"b", "a", "c"} {
		_, err := s.UpsertExport(ctx, testExportRow(name, "t", int64(i+1)))
		require.NoError(t, err)
	}
	other := testExportRow("z", "t", 9)
	other.ID.Zone.Owner = "bob"
	other.BatchID = "batch-2"
	_, err := s.UpsertExport(ctx, other)
	require.NoError(t, err)

	rows, err := s.ListExports(ctx, ir.ZoneID{Name: "DogsZone", Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[0].ID.RecordName)
	assert.Equal(t, "a", rows[1].ID.RecordName)
	assert.Equal(t, "c", rows[2].ID.RecordName)

	batch, err := s.ListBatch(ctx, "batch-2")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "bob", batch[0].ID.Zone.Owner)

	last, err := s.LastExportSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), last)

	empty, err := s.ListExports(ctx, ir.ZoneID{Name: "CatsZone", Owner: "alice"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetExport_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetExport(context.Background(), ir.RecordID{RecordName: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLastExportSeq_Empty(t *testing.T) {
	s := createTestStore(t)

	last, err := s.LastExportSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}
