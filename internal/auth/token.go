// Package auth hashes passwords and issues and verifies the bearer tokens
// that carry a user's identity and role flags.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenTTL = 24 * time.Hour

// Role names a capability derived from token claims.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleNotBanned Role = "notBanned"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Claims are the custom token claims. Subject holds the user ID.
type Claims struct {
	IsAdmin  bool `json:"isAdmin"`
	IsBanned bool `json:"isBanned"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a user ID.
func (c Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Subject))
	if err != nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return id, nil
}

// HasRole reports whether the claims grant role.
func (c Claims) HasRole(role Role) bool {
	switch role {
	case RoleAdmin:
		return c.IsAdmin
	case RoleNotBanned:
		return !c.IsBanned
	}
	return false
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs an issuer. A non-positive ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user with the given role flags. The flags are
// fixed for the lifetime of the token; a later ban or promotion takes effect
// when the user logs in again.
func (t *TokenIssuer) Issue(userID uuid.UUID, isAdmin, isBanned bool) (string, error) {
	now := t.now()
	claims := Claims{
		IsAdmin:  isAdmin,
		IsBanned: isBanned,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature and expiry of tokenString and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidSubject
	}
	return claims, nil
}
