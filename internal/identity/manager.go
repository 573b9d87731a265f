// Package identity handles registration, login, sessions and profile changes.
package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

// DefaultSessionTTL is used when Options.SessionTTL is not positive.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Options configures a Manager.
type Options struct {
	BcryptCost int
	SessionTTL time.Duration
	Publisher  events.Publisher
	Now        func() time.Time
}

// Manager owns the user and session collections.
type Manager struct {
	users    *store.Collection[models.User]
	sessions *store.Collection[models.SessionRecord]
	hasher   Hasher
	ttl      time.Duration
	pub      events.Publisher
	now      func() time.Time

	// mu serialises writes so uniqueness checks and the following save
	// cannot interleave.
	mu sync.Mutex
}

// NewManager creates a Manager over already loaded collections.
func NewManager(users *store.Collection[models.User], sessions *store.Collection[models.SessionRecord], opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		hasher:   NewHasher(opts.BcryptCost),
		ttl:      opts.SessionTTL,
		pub:      opts.Publisher,
		now:      opts.Now,
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Age           int    `json:"age"`
	Sex           string `json:"sex"`
	AvatarDataURL string `json:"avatarDataUrl"`

	// ConfirmPassword must equal Password when present.
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// Register creates a user. It does not log the user in.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)

	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return models.User{}, apperr.Validation("username is required")
	}
	if _, taken := m.users.Get(models.NormalizeUsername(username)); taken {
		return models.User{}, apperr.Validation("username already taken")
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}
	if m.emailTaken(email, "") {
		return models.User{}, apperr.Validation("email already in use")
	}
	if err := validatePhone(phone); err != nil {
		return models.User{}, err
	}
	if err := validateAge(in.Age); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return models.User{}, err
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return models.User{}, apperr.Validation("passwords do not match")
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	now := m.now().UTC()
	user := models.User{
		Username:      username,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Phone:         phone,
		Email:         email,
		Age:           in.Age,
		Sex:           strings.TrimSpace(in.Sex),
		AvatarDataURL: in.AvatarDataURL,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.users.Save(ctx, user, store.Back); err != nil {
		return models.User{}, err
	}

	logger.Log.Info().Str("user_hash", logger.HashUsername(username)).Msg("User registered")
	events.Emit(ctx, m.pub, events.New(events.UserRegistered, user.RecordOwner(), user.RecordID()))
	return user, nil
}

// Login checks credentials and starts a persisted session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.Validation("username and password are required")
	}

	user, ok := m.users.Get(models.NormalizeUsername(username))
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if !m.hasher.Matches(user.PasswordHash, password) {
		logger.Log.Info().Str("user_hash", logger.HashUsername(username)).Msg("Login rejected")
		return nil, apperr.Auth("wrong password")
	}

	now := m.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Save(ctx, sess.record(), store.Back); err != nil {
		return nil, err
	}

	logger.Log.Debug().Str("user_hash", logger.HashUsername(username)).Msg("Session started")
	return sess, nil
}

// Restore loads a persisted session. Expired sessions are removed.
func (m *Manager) Restore(ctx context.Context, id string) (*Session, error) {
	rec, ok := m.sessions.Get(id)
	if !ok {
		return nil, apperr.Auth("session not found")
	}

	if !m.now().Before(rec.ExpiresAt) {
		if _, err := m.sessions.Delete(ctx, id); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to remove expired session")
		}
		return nil, apperr.Auth("session expired")
	}

	user, ok := m.users.Get(models.NormalizeUsername(rec.Username))
	if !ok {
		return nil, apperr.Auth("session user no longer exists")
	}

	return &Session{ID: rec.ID, User: user, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

// Logout removes the persisted session and clears sess. Logging out twice is harmless.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if !sess.Active() {
		return nil
	}
	if _, err := m.sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	sess.clear()
	return nil
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Age           *int    `json:"age"`
	Sex           *string `json:"sex"`
	AvatarDataURL *string `json:"avatarDataUrl"`
}

// UpdateProfile applies patch to the session's user and refreshes sess.User.
func (m *Manager) UpdateProfile(ctx context.Context, sess *Session, patch ProfilePatch) (models.User, error) {
	if !sess.Active() {
		return models.User{}, apperr.Auth("not logged in")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users.Get(sess.Owner())
	if !ok {
		return models.User{}, apperr.Auth("session user no longer exists")
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := validateEmail(email); err != nil {
			return models.User{}, err
		}
		if m.emailTaken(email, user.RecordID()) {
			return models.User{}, apperr.Validation("email already in use")
		}
		user.Email = email
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if err := validatePhone(phone); err != nil {
			return models.User{}, err
		}
		user.Phone = phone
	}
	if patch.Age != nil {
		if err := validateAge(*patch.Age); err != nil {
			return models.User{}, err
		}
		user.Age = *patch.Age
	}
	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Sex != nil {
		user.Sex = strings.TrimSpace(*patch.Sex)
	}
	if patch.AvatarDataURL != nil {
		user.AvatarDataURL = *patch.AvatarDataURL
	}
	user.UpdatedAt = m.now().UTC()

	if err := m.users.Save(ctx, user, store.Back); err != nil {
		return models.User{}, err
	}
	sess.User = user

	events.Emit(ctx, m.pub, events.New(events.UserUpdated, user.RecordOwner(), user.RecordID()))
	return user, nil
}

// UpdatePassword replaces the session user's password after checking the current one.
func (m *Manager) UpdatePassword(ctx context.Context, sess *Session, current, next string) error {
	if !sess.Active() {
		return apperr.Auth("not logged in")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users.Get(sess.Owner())
	if !ok {
		return apperr.Auth("session user no longer exists")
	}
	if !m.hasher.Matches(user.PasswordHash, current) {
		return apperr.Auth("current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := m.hasher.Hash(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = m.now().UTC()

	if err := m.users.Save(ctx, user, store.Back); err != nil {
		return err
	}
	sess.User = user

	logger.Log.Info().Str("user_hash", logger.HashUsername(user.Username)).Msg("Password changed")
	return nil
}

// Get returns the user with the given username.
func (m *Manager) Get(_ context.Context, username string) (models.User, error) {
	user, ok := m.users.Get(models.NormalizeUsername(username))
	if !ok {
		return models.User{}, apperr.NotFound("user not found")
	}
	return user, nil
}

func (m *Manager) emailTaken(email, exceptID string) bool {
	if email == "" {
		return false
	}
	_, taken := m.users.Find(func(u models.User) bool {
		return u.RecordID() != exceptID && sameEmail(u.Email, email)
	})
	return taken
}
