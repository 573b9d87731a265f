package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type note struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

func (n note) RecordID() string    { return n.ID }
func (n note) RecordOwner() string { return n.Owner }

type failingBackend struct {
	*MemoryBackend
	failPut    bool
	failDelete bool
	failLoad   bool
}

var errBackend = errors.New("backend unavailable")

func (f *failingBackend) Load(ctx context.Context, collection string) ([]Row, error) {
	if f.failLoad {
		return nil, errBackend
	}
	return f.MemoryBackend.Load(ctx, collection)
}

func (f *failingBackend) Put(ctx context.Context, collection string, row Row) error {
	if f.failPut {
		return errBackend
	}
	return f.MemoryBackend.Put(ctx, collection, row)
}

func (f *failingBackend) Delete(ctx context.Context, collection, id string) error {
	if f.failDelete {
		return errBackend
	}
	return f.MemoryBackend.Delete(ctx, collection, id)
}

func texts(notes []note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Text
	}
	return out
}

func TestCollection_Save(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("indexes records by id and owner", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())

		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "a"}, Back))
		require.NoError(t, c.Save(ctx, note{ID: "2", Owner: "bob", Text: "b"}, Back))

		got, ok := c.Get("1")
		require.True(t, ok)
		require.Equal(t, "a", got.Text)
		require.Len(t, c.ByOwner("alice"), 1)
		require.Len(t, c.ByOwner("bob"), 1)
		require.Empty(t, c.ByOwner("carol"))
		require.Equal(t, 2, c.Len())
	})

	t.Run("front placement prepends and back placement appends", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())

		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "first"}, Back))
		require.NoError(t, c.Save(ctx, note{ID: "2", Owner: "alice", Text: "second"}, Back))
		require.NoError(t, c.Save(ctx, note{ID: "3", Owner: "alice", Text: "newest"}, Front))

		require.Equal(t, []string{"newest", "first", "second"}, texts(c.ByOwner("alice")))
	})

	t.Run("updating keeps the position", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())

		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "one"}, Back))
		require.NoError(t, c.Save(ctx, note{ID: "2", Owner: "alice", Text: "two"}, Back))
		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "one, edited"}, Front))

		require.Equal(t, []string{"one, edited", "two"}, texts(c.ByOwner("alice")))
	})

	t.Run("rejects empty id", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())

		require.Error(t, c.Save(ctx, note{Owner: "alice"}, Back))
		require.Zero(t, c.Len())
	})

	t.Run("leaves index untouched when the backend fails", func(t *testing.T) {
		t.Parallel()
		backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
		c := NewCollection[note]("notes", backend)
		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "kept"}, Back))

		backend.failPut = true
		err := c.Save(ctx, note{ID: "1", Owner: "alice", Text: "lost"}, Back)
		require.ErrorIs(t, err, errBackend)

		got, _ := c.Get("1")
		require.Equal(t, "kept", got.Text)

		err = c.Save(ctx, note{ID: "2", Owner: "alice", Text: "never"}, Back)
		require.ErrorIs(t, err, errBackend)
		require.Equal(t, 1, c.Len())
	})
}

func TestCollection_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes record from both indexes", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())
		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice"}, Back))

		existed, err := c.Delete(ctx, "1")
		require.NoError(t, err)
		require.True(t, existed)

		_, ok := c.Get("1")
		require.False(t, ok)
		require.Empty(t, c.ByOwner("alice"))
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", NewMemoryBackend())

		existed, err := c.Delete(ctx, "missing")
		require.NoError(t, err)
		require.False(t, existed)
	})

	t.Run("keeps record when the backend fails", func(t *testing.T) {
		t.Parallel()
		backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
		c := NewCollection[note]("notes", backend)
		require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice"}, Back))

		backend.failDelete = true
		_, err := c.Delete(ctx, "1")
		require.ErrorIs(t, err, errBackend)

		_, ok := c.Get("1")
		require.True(t, ok)
	})
}

func TestCollection_Load(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("restores records and order from the backend", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		writer := NewCollection[note]("notes", backend)
		require.NoError(t, writer.Save(ctx, note{ID: "1", Owner: "alice", Text: "old"}, Back))
		require.NoError(t, writer.Save(ctx, note{ID: "2", Owner: "alice", Text: "new"}, Front))

		reader := NewCollection[note]("notes", backend)
		require.NoError(t, reader.Load(ctx))
		require.Equal(t, []string{"new", "old"}, texts(reader.ByOwner("alice")))
	})

	t.Run("absent collection loads empty", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("nothing-here", NewMemoryBackend())
		require.NoError(t, c.Load(ctx))
		require.Zero(t, c.Len())
	})

	t.Run("skips corrupt rows instead of failing", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		require.NoError(t, backend.Put(ctx, "notes", Row{ID: "ok", Owner: "alice", Position: 1, Data: []byte(`{"id":"ok","owner":"alice","text":"fine"}`)}))
		require.NoError(t, backend.Put(ctx, "notes", Row{ID: "bad", Owner: "alice", Position: 2, Data: []byte(`{not json`)}))
		require.NoError(t, backend.Put(ctx, "notes", Row{ID: "blank", Owner: "alice", Position: 3, Data: []byte(`{}`)}))

		c := NewCollection[note]("notes", backend)
		require.NoError(t, c.Load(ctx))
		require.Equal(t, []string{"fine"}, texts(c.All()))
	})

	t.Run("reports backend errors", func(t *testing.T) {
		t.Parallel()
		c := NewCollection[note]("notes", &failingBackend{MemoryBackend: NewMemoryBackend(), failLoad: true})
		require.ErrorIs(t, c.Load(ctx), errBackend)
	})

	t.Run("new records after reload sort around loaded ones", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		writer := NewCollection[note]("notes", backend)
		require.NoError(t, writer.Save(ctx, note{ID: "1", Owner: "alice", Text: "a"}, Back))
		require.NoError(t, writer.Save(ctx, note{ID: "2", Owner: "alice", Text: "b"}, Front))

		reader := NewCollection[note]("notes", backend)
		require.NoError(t, reader.Load(ctx))
		require.NoError(t, reader.Save(ctx, note{ID: "3", Owner: "alice", Text: "c"}, Front))
		require.NoError(t, reader.Save(ctx, note{ID: "4", Owner: "alice", Text: "d"}, Back))

		require.Equal(t, []string{"c", "b", "a", "d"}, texts(reader.ByOwner("alice")))
	})
}

func TestCollection_Revision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCollection[note]("notes", NewMemoryBackend())

	before := c.Revision("alice")
	require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice"}, Back))
	afterSave := c.Revision("alice")
	require.NotEqual(t, before, afterSave)

	require.NoError(t, c.Save(ctx, note{ID: "2", Owner: "bob"}, Back))
	require.Equal(t, afterSave, c.Revision("alice"), "other owners do not bump the revision")

	_, err := c.Delete(ctx, "1")
	require.NoError(t, err)
	require.NotEqual(t, afterSave, c.Revision("alice"))
}

func TestCollection_Find(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCollection[note]("notes", NewMemoryBackend())
	require.NoError(t, c.Save(ctx, note{ID: "1", Owner: "alice", Text: "x"}, Back))
	require.NoError(t, c.Save(ctx, note{ID: "2", Owner: "bob", Text: "y"}, Back))

	got, ok := c.Find(func(n note) bool { return n.Text == "y" })
	require.True(t, ok)
	require.Equal(t, "2", got.ID)

	_, ok = c.Find(func(n note) bool { return n.Text == "z" })
	require.False(t, ok)
}
