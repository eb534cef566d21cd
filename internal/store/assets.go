package store

import (
	"context"
	"fmt"

	"github.com/roach88/cloudrec/internal/ir"
)

// PutAsset records asset metadata. Assets are content addressed, so a
// second write of the same checksum is ignored.
func (s *Store) PutAsset(ctx context.Context, a ir.IRAsset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put asset: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "assets")
	if err != nil {
		return fmt.Errorf("put asset: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (checksum, file_url, size, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(checksum) DO NOTHING
	`, a.Checksum, a.FileURL, a.Size, seq)
	if err != nil {
		return fmt.Errorf("put asset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put asset: commit: %w", err)
	}
	return nil
}

// GetAsset retrieves asset metadata by checksum.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) GetAsset(ctx context.Context, checksum string) (ir.IRAsset, error) {
	var a ir.IRAsset
	err := s.db.QueryRowContext(ctx, `
		SELECT checksum, file_url, size FROM assets WHERE checksum = ?
	`, checksum).Scan(&a.Checksum, &a.FileURL, &a.Size)
	if err != nil {
		return ir.IRAsset{}, fmt.Errorf("get asset %s: %w", checksum, err)
	}
	return a, nil
}
