package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

// SQLiteRecordRepository stores records in the SQLite records table.
type SQLiteRecordRepository struct {
	db *sql.DB
}

// NewSQLiteRecordRepository creates a new SQLiteRecordRepository.
func NewSQLiteRecordRepository(db *sql.DB) *SQLiteRecordRepository {
	return &SQLiteRecordRepository{db: db}
}

var _ store.Backend = (*SQLiteRecordRepository)(nil)

// Load retrieves every row of a collection ordered by position.
func (r *SQLiteRecordRepository) Load(ctx context.Context, collection string) ([]store.Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, position, data FROM records
		WHERE collection = ?
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
func (r *SQLiteRecordRepository) Put(ctx context.Context, collection string, row store.Row) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, owner, position, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			owner = excluded.owner,
			position = excluded.position,
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, collection, row.ID, row.Owner, row.Position, row.Data)
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes a row by id.
func (r *SQLiteRecordRepository) Delete(ctx context.Context, collection, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
