package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/identity"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
)

// maxBodyBytes leaves room for an avatar data URL in profile updates.
const maxBodyBytes = 2 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidToken):
		writeMessage(w, http.StatusForbidden, apperr.Message(err, "invalid token"))
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, apperr.Message(err, "invalid request"))
	case errors.Is(err, apperr.ErrAuth):
		writeMessage(w, http.StatusUnauthorized, apperr.Message(err, "unauthorized"))
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, apperr.Message(err, "not found"))
	default:
		logger.Log.Error().Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid JSON body")
	}
}
