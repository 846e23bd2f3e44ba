package session

import (
	"context"
	"strings"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleMerchant Role = "MERCHANT"
	RoleAdmin    Role = "ADMIN"
)

// Identity is the authenticated session the auth service stores under a token.
// This service only reads it.
type Identity struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email"`
}

// Is compares roles case-insensitively; sessions written by other services
// are not consistent about casing.
func (i Identity) Is(role Role) bool {
	return strings.EqualFold(string(i.Role), string(role))
}

// Store resolves a token to its identity. Implementations return
// apperr.ErrSessionNotFound when the token is unknown or expired.
type Store interface {
	Get(ctx context.Context, token string) (Identity, error)
}

// Resolve loads the session for token and, when roles are given, requires the
// identity to hold one of them.
func Resolve(ctx context.Context, store Store, token string, roles ...Role) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, apperr.ErrSessionNotFound
	}
	id, err := store.Get(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if len(roles) == 0 {
		return id, nil
	}
	for _, r := range roles {
		if id.Is(r) {
			return id, nil
		}
	}
	return Identity{}, apperr.ErrWrongRole
}
