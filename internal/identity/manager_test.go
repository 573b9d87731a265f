package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	manager  *Manager
	backend  *store.MemoryBackend
	recorder *events.Recorder
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := store.NewMemoryBackend()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{backend: backend, recorder: &events.Recorder{}, clock: &now}
	f.manager = f.open(t)
	return f
}

// open builds a Manager over collections freshly loaded from the fixture backend.
func (f *fixture) open(t *testing.T) *Manager {
	t.Helper()
	ctx := context.Background()
	users := store.NewCollection[models.User]("users", f.backend)
	sessions := store.NewCollection[models.SessionRecord]("sessions", f.backend)
	require.NoError(t, users.Load(ctx))
	require.NoError(t, sessions.Load(ctx))
	return NewManager(users, sessions, Options{
		BcryptCost: bcrypt.MinCost,
		SessionTTL: time.Hour,
		Publisher:  f.recorder,
		Now:        func() time.Time { return *f.clock },
	})
}

func register(t *testing.T, m *Manager, username, email, password string) models.User {
	t.Helper()
	user, err := m.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores trimmed fields and hashes the password", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		user, err := f.manager.Register(ctx, RegisterInput{
			Username:  "  Alice ",
			Password:  "secret1",
			FirstName: " Alice ",
			Email:     " alice@example.com ",
			Age:       30,
		})
		require.NoError(t, err)
		require.Equal(t, "Alice", user.Username)
		require.Equal(t, "Alice", user.FirstName)
		require.Equal(t, "alice@example.com", user.Email)
		require.Equal(t, 30, user.Age)
		require.Empty(t, user.Sex)
		require.NotEqual(t, "secret1", user.PasswordHash)
		require.Equal(t, []events.Type{events.UserRegistered}, f.recorder.Types())
	})

	t.Run("checks the confirmation when given", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.manager.Register(ctx, RegisterInput{Username: "erin", Password: "secret1", ConfirmPassword: "secret2"})
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "passwords do not match")
		_, err = f.manager.Get(ctx, "erin")
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.manager.Register(ctx, RegisterInput{Username: "erin", Password: "secret1", ConfirmPassword: "secret1"})
		require.NoError(t, err)
	})

	t.Run("rejects usernames differing only by case", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "Bob", "", "secret1")

		_, err := f.manager.Register(ctx, RegisterInput{Username: " bob", Password: "secret2"})
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "username already taken")
	})

	t.Run("rejects duplicate email case-insensitively", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "carol", "carol@example.com", "secret1")

		_, err := f.manager.Register(ctx, RegisterInput{Username: "dave", Email: "CAROL@example.com", Password: "secret1"})
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "email already in use")
	})

	t.Run("allows several users without email", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "erin", "", "secret1")
		register(t, f.manager, "frank", "", "secret1")
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		tests := []struct {
			name string
			in   RegisterInput
			msg  string
		}{
			{"blank username", RegisterInput{Username: "  ", Password: "secret1"}, "username is required"},
			{"short password", RegisterInput{Username: "gina", Password: "12345"}, "password must be at least 6 characters"},
			{"bad email", RegisterInput{Username: "gina", Email: "gina@", Password: "secret1"}, "invalid email"},
			{"bad phone", RegisterInput{Username: "gina", Phone: "abc", Password: "secret1"}, "invalid phone number"},
			{"age out of range", RegisterInput{Username: "gina", Age: 7, Password: "secret1"}, "age must be between 10 and 120"},
		}
		for _, tt := range tests {
			_, err := f.manager.Register(ctx, tt.in)
			require.ErrorIs(t, err, apperr.ErrValidation, tt.name)
			require.EqualError(t, err, tt.msg, tt.name)
		}
		require.Empty(t, f.recorder.Events())
	})

	t.Run("counts password length in characters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "henry", "", "ääääää")
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns a session for the registered user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		registered := register(t, f.manager, "Alice", "alice@example.com", "secret1")

		sess, err := f.manager.Login(ctx, "ALICE", "secret1")
		require.NoError(t, err)
		require.NotEmpty(t, sess.ID)
		require.Equal(t, registered, sess.User)
		require.Equal(t, "alice", sess.Owner())
		require.Equal(t, f.clock.Add(time.Hour), sess.ExpiresAt)
	})

	t.Run("reports missing fields, unknown users and wrong passwords", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "alice", "", "secret1")

		_, err := f.manager.Login(ctx, "", "secret1")
		require.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.manager.Login(ctx, "alice", "")
		require.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.manager.Login(ctx, "alice", "   ")
		require.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.manager.Login(ctx, "nobody", "\t ")
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.NotErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.manager.Login(ctx, "nobody", "secret1")
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.manager.Login(ctx, "alice", "Secret1")
		require.ErrorIs(t, err, apperr.ErrAuth)
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("restores a session after reopening the store", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "alice", "", "secret1")
		sess, err := f.manager.Login(ctx, "alice", "secret1")
		require.NoError(t, err)

		restored, err := f.open(t).Restore(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, sess.ID, restored.ID)
		require.Equal(t, "alice", restored.User.Username)
	})

	t.Run("rejects unknown and expired sessions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "alice", "", "secret1")
		sess, err := f.manager.Login(ctx, "alice", "secret1")
		require.NoError(t, err)

		_, err = f.manager.Restore(ctx, "missing")
		require.ErrorIs(t, err, apperr.ErrAuth)

		*f.clock = f.clock.Add(2 * time.Hour)
		_, err = f.manager.Restore(ctx, sess.ID)
		require.ErrorIs(t, err, apperr.ErrAuth)
		require.Zero(t, f.manager.sessions.Len())
	})

	t.Run("logout clears the session and is idempotent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "alice", "", "secret1")
		sess, err := f.manager.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		id := sess.ID

		require.NoError(t, f.manager.Logout(ctx, sess))
		require.False(t, sess.Active())
		require.NoError(t, f.manager.Logout(ctx, sess))
		require.NoError(t, f.manager.Logout(ctx, nil))

		_, err = f.manager.Restore(ctx, id)
		require.ErrorIs(t, err, apperr.ErrAuth)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	strPtr := func(s string) *string { return &s }

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.manager.UpdateProfile(ctx, nil, ProfilePatch{})
		require.ErrorIs(t, err, apperr.ErrAuth)
		_, err = f.manager.UpdateProfile(ctx, &Session{}, ProfilePatch{})
		require.ErrorIs(t, err, apperr.ErrAuth)
	})

	t.Run("applies only provided fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.manager.Register(ctx, RegisterInput{Username: "alice", Password: "secret1", FirstName: "Alice", LastName: "Liddell"})
		require.NoError(t, err)
		sess, err := f.manager.Login(ctx, "alice", "secret1")
		require.NoError(t, err)

		user, err := f.manager.UpdateProfile(ctx, sess, ProfilePatch{FirstName: strPtr(" Alicia "), Email: strPtr("a@b.co")})
		require.NoError(t, err)
		require.Equal(t, "Alicia", user.FirstName)
		require.Equal(t, "Liddell", user.LastName)
		require.Equal(t, "a@b.co", user.Email)
		require.Equal(t, user, sess.User)

		stored, err := f.manager.Get(ctx, "ALICE")
		require.NoError(t, err)
		require.Equal(t, user, stored)
	})

	t.Run("rejects an email owned by another user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		register(t, f.manager, "alice", "alice@example.com", "secret1")
		register(t, f.manager, "bob", "bob@example.com", "secret1")
		sess, err := f.manager.Login(ctx, "bob", "secret1")
		require.NoError(t, err)

		_, err = f.manager.UpdateProfile(ctx, sess, ProfilePatch{Email: strPtr("Alice@Example.com")})
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.Equal(t, "bob@example.com", sess.User.Email)

		_, err = f.manager.UpdateProfile(ctx, sess, ProfilePatch{Email: strPtr("BOB@example.com")})
		require.NoError(t, err)
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	register(t, f.manager, "alice", "", "secret1")
	sess, err := f.manager.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	err = f.manager.UpdatePassword(ctx, sess, "wrong", "secret2")
	require.ErrorIs(t, err, apperr.ErrAuth)

	err = f.manager.UpdatePassword(ctx, sess, "secret1", "123")
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.manager.UpdatePassword(ctx, sess, "secret1", "secret2"))

	_, err = f.manager.Login(ctx, "alice", "secret1")
	require.ErrorIs(t, err, apperr.ErrAuth)
	_, err = f.manager.Login(ctx, "alice", "secret2")
	require.NoError(t, err)

	require.ErrorIs(t, f.manager.UpdatePassword(ctx, nil, "secret2", "secret3"), apperr.ErrAuth)
}

func TestGet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.manager.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
