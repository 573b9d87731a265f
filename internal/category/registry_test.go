package category

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

func newRegistry(t *testing.T, backend store.Backend) (*Registry, *events.Recorder) {
	t.Helper()
	coll := store.NewCollection[models.Category]("categories", backend)
	require.NoError(t, coll.Load(context.Background()))
	rec := &events.Recorder{}
	return NewRegistry(coll, rec), rec
}

func names(list []models.Category) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name
	}
	return out
}

func TestListForOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seeds defaults once", func(t *testing.T) {
		t.Parallel()
		r, rec := newRegistry(t, store.NewMemoryBackend())

		first, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, first, len(models.DefaultCategories))
		for i, seed := range models.DefaultCategories {
			require.Equal(t, seed.Name, first[i].Name)
			require.Equal(t, seed.Color, first[i].Color)
			require.Equal(t, "alice", first[i].Owner)
		}

		second, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, []events.Type{events.CategorySeeded}, rec.Types())
	})

	t.Run("keeps owners apart", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, store.NewMemoryBackend())

		_, err := r.Create(ctx, "bob", "Books", "")
		require.NoError(t, err)

		bob, err := r.ListForOwner(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []string{"Books"}, names(bob))

		alice, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, alice, len(models.DefaultCategories))
	})

	t.Run("survives reload with the same ids", func(t *testing.T) {
		t.Parallel()
		backend := store.NewMemoryBackend()
		r, _ := newRegistry(t, backend)
		first, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)

		reopened, _ := newRegistry(t, backend)
		again, err := reopened.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, first, again)
	})
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("places new categories first", func(t *testing.T) {
		t.Parallel()
		r, rec := newRegistry(t, store.NewMemoryBackend())
		_, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)

		c, err := r.Create(ctx, "alice", "  Gifts ", "#ABCDEF")
		require.NoError(t, err)
		require.Equal(t, "Gifts", c.Name)
		require.Equal(t, "#abcdef", c.Color)
		require.NotEmpty(t, c.ID)

		list, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, c, list[0])
		require.Contains(t, rec.Types(), events.CategoryCreated)
	})

	t.Run("defaults the colour", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, store.NewMemoryBackend())
		c, err := r.Create(ctx, "alice", "Pets", " ")
		require.NoError(t, err)
		require.Equal(t, models.DefaultCategoryColor, c.Color)
	})

	t.Run("allows duplicate names", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, store.NewMemoryBackend())
		a, err := r.Create(ctx, "alice", "Food", "")
		require.NoError(t, err)
		b, err := r.Create(ctx, "alice", "Food", "")
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		r, rec := newRegistry(t, store.NewMemoryBackend())

		_, err := r.Create(ctx, "alice", "   ", "")
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "name is required")

		_, err = r.Create(ctx, "alice", "Food", "red")
		require.ErrorIs(t, err, apperr.ErrValidation)

		_, err = r.Create(ctx, "alice", strings.Repeat("x", models.MaxCategoryNameLength+1), "")
		require.ErrorIs(t, err, apperr.ErrValidation)

		require.Empty(t, rec.Events())
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, _ := newRegistry(t, store.NewMemoryBackend())
	c, err := r.Create(ctx, "alice", "Food", "#111111")
	require.NoError(t, err)
	other, err := r.Create(ctx, "alice", "Rent", "")
	require.NoError(t, err)

	t.Run("replaces name and colour in place", func(t *testing.T) {
		updated, found, err := r.Update(ctx, "alice", c.ID, Patch{Name: "Groceries", Color: "#222222"})
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Groceries", updated.Name)
		require.Equal(t, "#222222", updated.Color)

		list, err := r.ListForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, []string{"Rent", "Groceries"}, names(list))
		require.Equal(t, other.ID, list[0].ID)
	})

	t.Run("ignores unknown ids and other owners", func(t *testing.T) {
		_, found, err := r.Update(ctx, "alice", "missing", Patch{Name: "X"})
		require.NoError(t, err)
		require.False(t, found)

		_, found, err = r.Update(ctx, "bob", c.ID, Patch{Name: "X"})
		require.NoError(t, err)
		require.False(t, found)

		got, err := r.Get("alice", c.ID)
		require.NoError(t, err)
		require.Equal(t, "Groceries", got.Name)
	})

	t.Run("keeps the colour when the patch omits it", func(t *testing.T) {
		updated, found, err := r.Update(ctx, "alice", other.ID, Patch{Name: "Housing", Color: "#ABCDEF"})
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "#abcdef", updated.Color)

		updated, found, err = r.Update(ctx, "alice", other.ID, Patch{Name: "Home"})
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Home", updated.Name)
		require.Equal(t, "#abcdef", updated.Color)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, _, err := r.Update(ctx, "alice", c.ID, Patch{Name: " "})
		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects a malformed colour", func(t *testing.T) {
		_, _, err := r.Update(ctx, "alice", c.ID, Patch{Name: "Food", Color: "red"})
		require.ErrorIs(t, err, apperr.ErrValidation)

		got, err := r.Get("alice", c.ID)
		require.NoError(t, err)
		require.Equal(t, "#222222", got.Color)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, rec := newRegistry(t, store.NewMemoryBackend())
	c, err := r.Create(ctx, "alice", "Food", "")
	require.NoError(t, err)

	deleted, err := r.Delete(ctx, "bob", c.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = r.Delete(ctx, "alice", c.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = r.Get("alice", c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	deleted, err = r.Delete(ctx, "alice", c.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	require.Equal(t, []events.Type{events.CategoryCreated, events.CategoryDeleted}, rec.Types())
}

type brokenBackend struct{ *store.MemoryBackend }

func (brokenBackend) Put(context.Context, string, store.Row) error {
	return errors.New("disk full")
}

func TestCreate_BackendFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	r, rec := newRegistry(t, brokenBackend{store.NewMemoryBackend()})
	_, err := r.Create(context.Background(), "alice", "Food", "")
	require.Error(t, err)
	require.Empty(t, r.categories.ByOwner("alice"))
	require.Empty(t, rec.Events())
}

// flakyBackend fails the nth Put once.
type flakyBackend struct {
	*store.MemoryBackend
	failAt int
	puts   int
}

func (b *flakyBackend) Put(ctx context.Context, collection string, row store.Row) error {
	b.puts++
	if b.puts == b.failAt {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Put(ctx, collection, row)
}

func TestListForOwner_SeedFailureRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &flakyBackend{MemoryBackend: store.NewMemoryBackend(), failAt: 4}
	r, rec := newRegistry(t, backend)

	_, err := r.ListForOwner(ctx, "alice")
	require.Error(t, err)
	require.Empty(t, r.categories.ByOwner("alice"))
	require.Empty(t, rec.Events())

	rows, err := backend.Load(ctx, "categories")
	require.NoError(t, err)
	require.Empty(t, rows)

	list, err := r.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, len(models.DefaultCategories))
	require.Equal(t, models.DefaultCategories[0].Name, list[0].Name)
	require.Equal(t, []events.Type{events.CategorySeeded}, rec.Types())
}
