package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

// Verifier resolves a raw bearer token into the caller's principal ID.
// The token is opaque to handlers; only the verifier knows its format.
type Verifier interface {
	Verify(token string) (uuid.UUID, error)
}

// JWTVerifier validates HS256 tokens issued by the identity provider.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier returns a Verifier for the given shared secret.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify validates the token signature and expiry and returns the
// subject as a UUID.
func (v *JWTVerifier) Verify(tokenStr string) (uuid.UUID, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("no claims")
	}
	if v.issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != "" && iss != v.issuer {
			return uuid.Nil, errors.New("wrong issuer")
		}
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("no subject")
	}
	return uuid.Parse(sub)
}

// Sign creates an HS256 token with 24h expiration. Used by tests and
// local tooling; production tokens come from the identity provider.
func Sign(secret, issuer string, userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"iss": issuer,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// FromHeader resolves the Authorization header into a principal. The
// header must be present and of the form "Bearer <token>"; anything else
// is Unauthorized before any upstream work happens.
func FromHeader(v Verifier, authz string) (uuid.UUID, *apperr.Error) {
	if !strings.HasPrefix(authz, "Bearer ") {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "missing bearer token")
	}
	raw := strings.TrimPrefix(authz, "Bearer ")
	uid, err := v.Verify(raw)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.Unauthorized, "invalid token", err)
	}
	return uid, nil
}
