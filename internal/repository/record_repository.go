// Package repository provides durable storage for store records.
package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-tracker/internal/database"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

// RecordRepository stores records in the PostgreSQL records table.
type RecordRepository struct {
	db database.PGXDB
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db database.PGXDB) *RecordRepository {
	return &RecordRepository{db: db}
}

var _ store.Backend = (*RecordRepository)(nil)

// Load retrieves every row of a collection ordered by position.
func (r *RecordRepository) Load(ctx context.Context, collection string) ([]store.Row, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner, position, data FROM records
		WHERE collection = $1
		ORDER BY position
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var row store.Row
		if err := rows.Scan(&row.ID, &row.Owner, &row.Position, &row.Data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return out, nil
}

// Put inserts or replaces a single row.
func (r *RecordRepository) Put(ctx context.Context, collection string, row store.Row) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO records (collection, id, owner, position, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE SET
			owner = EXCLUDED.owner,
			position = EXCLUDED.position,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, collection, row.ID, row.Owner, row.Position, row.Data)
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes a row by id.
func (r *RecordRepository) Delete(ctx context.Context, collection, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
