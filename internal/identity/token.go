package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
)

// ErrInvalidToken is returned for bearer tokens that are malformed or whose
// signature does not verify.
var ErrInvalidToken = &apperr.Error{Kind: apperr.ErrAuth, Msg: "invalid token"}

const tokenIssuer = "expense-tracker"

// TokenSigner issues HS256 JWTs whose jti is a server-side session id.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner creates a TokenSigner for secret.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// Sign returns a JWT for sess. The token expires with the session.
func (s *TokenSigner) Sign(sess *Session) (string, error) {
	if !sess.Active() {
		return "", apperr.Auth("not logged in")
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.Owner(),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry and returns the session id.
func (s *TokenSigner) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", apperr.Auth("session expired")
	case err != nil:
		return "", ErrInvalidToken
	case claims.ID == "":
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
