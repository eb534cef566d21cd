package store

import (
	"context"
	"fmt"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/object"
)

// PutObject inserts or replaces a local object. The object's type must be
// registered in cat and its primary key must be a string or an integer.
// Every write takes a fresh seq, so ListObjects returns objects in the
// order they were last written.
func (s *Store) PutObject(ctx context.Context, cat *catalog.Catalog, obj object.Object) error {
	schema, err := cat.Require(obj.ObjectType())
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	if schema.PrimaryKey == "" {
		return fmt.Errorf("put object: %s has no primary key", schema.Name)
	}
	pk, _ := obj.Get(schema.PrimaryKey)
	key, ok := object.FormatKey(pk)
	if !ok {
		return fmt.Errorf("put object: %s primary key %q holds %T", schema.Name, schema.PrimaryKey, pk)
	}

	body, err := marshalObject(cat, schema, obj)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put object: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx, "objects")
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects (object_type, object_key, body, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(object_type, object_key) DO UPDATE SET body = excluded.body, seq = excluded.seq
	`, schema.Name, key, body, seq)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put object: commit: %w", err)
	}
	return nil
}

// GetObject retrieves a single object by type and rendered primary key.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) GetObject(ctx context.Context, objectType, key string) (*object.Dynamic, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM objects
		WHERE object_type = ? AND object_key = ?
	`, objectType, key).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", objectType, key, err)
	}
	return unmarshalObject(objectType, body)
}

// ListObjects returns every object of a type ordered by seq ASC, key ASC
// COLLATE BINARY. Returns an empty slice (not nil) if there are none.
func (s *Store) ListObjects(ctx context.Context, objectType string) ([]*object.Dynamic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM objects
		WHERE object_type = ?
		ORDER BY seq ASC, object_key COLLATE BINARY ASC
	`, objectType)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	objects := []*object.Dynamic{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		obj, err := unmarshalObject(objectType, body)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}

// CountObjects returns the number of stored objects of a type.
func (s *Store) CountObjects(ctx context.Context, objectType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE object_type = ?`, objectType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return n, nil
}

// DeleteObject removes an object. It reports whether a row was deleted.
func (s *Store) DeleteObject(ctx context.Context, objectType, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM objects WHERE object_type = ? AND object_key = ?
	`, objectType, key)
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	return n > 0, nil
}

