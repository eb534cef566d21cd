package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cloudrec/internal/ir"
)

// ExportRow is the stored snapshot of an exported record.
type ExportRow struct {
	ID         ir.RecordID
	RecordType string
	ChangeTag  string
	Body       string // canonical JSON of the record
	BatchID    string
	SchemaHash string
	Seq        int64
}

// UpsertExport writes the snapshot of a record. A row with the same record
// id and change tag is left untouched; changed reports whether anything
// was written.
func (s *Store) UpsertExport(ctx context.Context, row ExportRow) (changed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("upsert export: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT change_tag FROM exports
		WHERE zone_name = ? AND zone_owner = ? AND record_name = ?
	`, row.ID.Zone.Name, row.ID.Zone.Owner, row.ID.RecordName).Scan(&existing)
	switch {
	case err == nil && existing == row.ChangeTag:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("upsert export: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exports
		(zone_name, zone_owner, record_name, record_type, change_tag, body, batch_id, schema_hash, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(zone_name, zone_owner, record_name) DO UPDATE SET
			record_type = excluded.record_type,
			change_tag  = excluded.change_tag,
			body        = excluded.body,
			batch_id    = excluded.batch_id,
			schema_hash = excluded.schema_hash,
			seq         = excluded.seq
	`,
		row.ID.Zone.Name,
		row.ID.Zone.Owner,
		row.ID.RecordName,
		row.RecordType,
		row.ChangeTag,
		row.Body,
		row.BatchID,
		row.SchemaHash,
		row.Seq,
	)
	if err != nil {
		return false, fmt.Errorf("upsert export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("upsert export: commit: %w", err)
	}
	return true, nil
}

// GetExport retrieves the snapshot of a record.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) GetExport(ctx context.Context, id ir.RecordID) (ExportRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT zone_name, zone_owner, record_name, record_type, change_tag, body, batch_id, schema_hash, seq
		FROM exports
		WHERE zone_name = ? AND zone_owner = ? AND record_name = ?
	`, id.Zone.Name, id.Zone.Owner, id.RecordName)

	r, err := scanExport(row)
	if err != nil {
		return ExportRow{}, fmt.Errorf("get export %s: %w", id, err)
	}
	return r, nil
}

// ListExports returns the snapshots in a zone ordered by seq ASC, record
// name ASC COLLATE BINARY. Returns an empty slice (not nil) if there are none.
func (s *Store) ListExports(ctx context.Context, zone ir.ZoneID) ([]ExportRow, error) {
	return s.queryExports(ctx, `
		SELECT zone_name, zone_owner, record_name, record_type, change_tag, body, batch_id, schema_hash, seq
		FROM exports
		WHERE zone_name = ? AND zone_owner = ?
		ORDER BY seq ASC, record_name COLLATE BINARY ASC
	`, zone.Name, zone.Owner)
}

// ListBatch returns the snapshots written by one export batch.
func (s *Store) ListBatch(ctx context.Context, batchID string) ([]ExportRow, error) {
	return s.queryExports(ctx, `
		SELECT zone_name, zone_owner, record_name, record_type, change_tag, body, batch_id, schema_hash, seq
		FROM exports
		WHERE batch_id = ?
		ORDER BY seq ASC, record_name COLLATE BINARY ASC
	`, batchID)
}

// LastExportSeq returns the highest seq in the exports table, or 0.
func (s *Store) LastExportSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM exports`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last export seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryExports(ctx context.Context, query string, args ...any) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	out := []ExportRow{}
	for rows.Next() {
		r, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(sc scanner) (ExportRow, error) {
	var r ExportRow
	err := sc.Scan(
		&r.ID.Zone.Name,
		&r.ID.Zone.Owner,
		&r.ID.RecordName,
		&r.RecordType,
		&r.ChangeTag,
		&r.Body,
		&r.BatchID,
		&r.SchemaHash,
		&r.Seq,
	)
	if err != nil {
		return ExportRow{}, err
	}
	return r, nil
}
