package auth

import (
	"context"
	"errors"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/token"
)

// Context is the identity context handed to protected request handlers.
type Context struct {
	User   identity.User
	Claims token.Claims
}

// Guard resolves and validates the caller's identity for protected
// operations. It is read-only: no state changes on any path.
type Guard struct {
	tokens *token.Service
	repo   identity.Repository
}

// NewGuard builds an authorization guard.
func NewGuard(tokens *token.Service, repo identity.Repository) *Guard {
	return &Guard{tokens: tokens, repo: repo}
}

// Authorize verifies the token, resolves the identity behind it and, when a
// required role is given, enforces role satisfaction. Token service errors
// propagate unchanged.
func (g *Guard) Authorize(ctx context.Context, tokenString string, required identity.Role) (Context, error) {
	claims, err := g.tokens.Verify(tokenString)
	if err != nil {
		return Context{}, err
	}

	user, err := g.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Context{}, ErrUnknownIdentity
		}
		return Context{}, err
	}

	if required != "" && !claims.Role.Satisfies(required) {
		return Context{}, ErrInsufficientRole
	}

	user.PasswordHash = nil
	return Context{User: user, Claims: claims}, nil
}
