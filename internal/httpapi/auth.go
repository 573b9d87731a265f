package httpapi

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/identity"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

const principalKey ctxKey = "principal"

// principal is the caller of an authenticated route. Session is nil when
// the server runs without authentication.
type principal struct {
	Owner   string
	Session *identity.Session
}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey).(principal)
	return p
}

func (h *handlers) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.resolvePrincipal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func (h *handlers) resolvePrincipal(r *http.Request) (principal, error) {
	if h.opts.AuthMode == AuthNone {
		return principal{Owner: models.NormalizeUsername(h.opts.AnonymousOwner)}, nil
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return principal{}, apperr.Auth("missing bearer token")
	}

	id, err := h.opts.Signer.Verify(strings.TrimSpace(token))
	if err != nil {
		return principal{}, err
	}

	sess, err := h.deps.Identity.Restore(r.Context(), id)
	if err != nil {
		return principal{}, err
	}
	return principal{Owner: sess.Owner(), Session: sess}, nil
}
