package httpapi

import (
	"net/http"
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/identity"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type passwordRequest struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in identity.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.deps.Identity.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.deps.Identity.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token := sess.ID
	if h.opts.Signer != nil {
		token, err = h.opts.Signer.Sign(sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      newUserResponse(sess.User),
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if err := h.deps.Identity.Logout(r.Context(), p.Session); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	user, err := h.deps.Identity.Get(r.Context(), p.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch identity.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	user, err := h.deps.Identity.UpdateProfile(r.Context(), p.Session, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *handlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	if err := h.deps.Identity.UpdatePassword(r.Context(), p.Session, in.Current, in.New); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
