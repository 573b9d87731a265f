package identity

import (
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

// Session is the authenticated context of one client. It is returned by
// Login or Restore and passed explicitly into every operation that needs
// an authenticated user.
type Session struct {
	ID        string
	User      models.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether s refers to a logged-in user.
func (s *Session) Active() bool {
	return s != nil && s.ID != ""
}

// Owner returns the normalised username that scopes the session's data.
func (s *Session) Owner() string {
	if !s.Active() {
		return ""
	}
	return models.NormalizeUsername(s.User.Username)
}

func (s *Session) record() models.SessionRecord {
	return models.SessionRecord{
		ID:        s.ID,
		Username:  s.User.Username,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

func (s *Session) clear() {
	*s = Session{}
}
