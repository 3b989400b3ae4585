// README: JWT validation. The platform only verifies tokens; issuing them is
// the identity provider's job.
package auth

import (
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"dormdrop/internal/types"
)

var (
	ErrMissingToken = errors.New("missing authorization")
	ErrInvalidToken = errors.New("invalid token")
)

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseBearer extracts and validates a Bearer JWT from an Authorization
// header value and returns the authenticated actor.
func ParseBearer(header, secret string) (types.Actor, error) {
	if header == "" {
		return types.Actor{}, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return types.Actor{}, ErrInvalidToken
	}
	return ParseToken(strings.TrimSpace(parts[1]), secret)
}

// ParseToken validates an HS256 token and extracts the actor claims.
func ParseToken(tokenStr, secret string) (types.Actor, error) {
	if secret == "" {
		return types.Actor{}, errors.New("jwt secret is empty")
	}

	var c claims
	tok, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return types.Actor{}, ErrInvalidToken
	}
	if c.Subject == "" || c.Name == "" {
		return types.Actor{}, ErrInvalidToken
	}
	role := types.Role(strings.ToLower(c.Role))
	switch role {
	case types.RoleCustomer, types.RoleDelivery, types.RoleAdmin:
	default:
		return types.Actor{}, ErrInvalidToken
	}
	return types.Actor{ID: types.ID(c.Subject), Name: c.Name, Role: role}, nil
}

// Sign issues an HS256 token for an actor. Used by tests and local tooling.
func Sign(actor types.Actor, secret string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: actor.Name,
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: string(actor.ID),
		},
	})
	return tok.SignedString([]byte(secret))
}
