package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-tracker/internal/database/sqlite"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")
	require.NoError(t, sqlite.RunMigrations(path))

	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRecordRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRecordRepository(openSQLite(t))

	t.Run("returns no rows for an unknown collection", func(t *testing.T) {
		rows, err := repo.Load(ctx, "empty")
		require.NoError(t, err)
		require.Empty(t, rows)
	})

	t.Run("puts and loads rows in position order", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "notes", store.Row{ID: "b", Owner: "alice", Position: 2, Data: []byte(`{"id":"b"}`)}))
		require.NoError(t, repo.Put(ctx, "notes", store.Row{ID: "a", Owner: "alice", Position: -1, Data: []byte(`{"id":"a"}`)}))

		rows, err := repo.Load(ctx, "notes")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "a", rows[0].ID)
		require.Equal(t, int64(-1), rows[0].Position)
		require.Equal(t, "b", rows[1].ID)
	})

	t.Run("replaces existing rows", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "notes", store.Row{ID: "a", Owner: "alice", Position: -1, Data: []byte(`{"id":"a","v":2}`)}))

		rows, err := repo.Load(ctx, "notes")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, `{"id":"a","v":2}`, string(rows[0].Data))
	})

	t.Run("deletes rows", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "notes", "a"))

		rows, err := repo.Load(ctx, "notes")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})
}

func TestSQLiteRecordRepository_BacksCollection(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	t.Run("collection survives reopening", func(t *testing.T) {
		writer := store.NewCollection[models.Category]("categories", NewSQLiteRecordRepository(db))
		require.NoError(t, writer.Save(ctx, models.Category{ID: "c1", Owner: "alice", Name: "Food", Color: "#f59e0b"}, store.Back))
		require.NoError(t, writer.Save(ctx, models.Category{ID: "c2", Owner: "alice", Name: "Taxi", Color: "#285bde"}, store.Front))

		reader := store.NewCollection[models.Category]("categories", NewSQLiteRecordRepository(db))
		require.NoError(t, reader.Load(ctx))

		cats := reader.ByOwner("alice")
		require.Len(t, cats, 2)
		require.Equal(t, "Taxi", cats[0].Name)
		require.Equal(t, "Food", cats[1].Name)
	})

	t.Run("corrupt rows are skipped on load", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO records (collection, id, owner, position, data)
			VALUES ('categories', 'broken', 'alice', 99, 'not json')
		`)
		require.NoError(t, err)

		reader := store.NewCollection[models.Category]("categories", NewSQLiteRecordRepository(db))
		require.NoError(t, reader.Load(ctx))
		require.Len(t, reader.ByOwner("alice"), 2)
	})
}
