package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/token"
)

func newTestGuard(t *testing.T) (*Guard, *token.Service, identity.Repository) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	tokens, err := token.NewService("guard-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return NewGuard(tokens, repo), tokens, repo
}

func seedUser(t *testing.T, repo identity.Repository, role identity.Role) identity.User {
	t.Helper()
	user := identity.User{
		ID:        uuid.NewString(),
		Phone:     "+1555" + uuid.NewString()[:7],
		Role:      role,
		Status:    identity.StatusVerified,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestGuardAuthorize(t *testing.T) {
	guard, tokens, repo := newTestGuard(t)
	user := seedUser(t, repo, identity.RoleStandard)

	tok, err := tokens.Mint(user.ID, user.Role)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	authCtx, err := guard.Authorize(context.Background(), tok, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authCtx.User.ID != user.ID {
		t.Fatalf("resolved wrong identity: %s", authCtx.User.ID)
	}
	if authCtx.User.PasswordHash != nil {
		t.Fatal("guard must not expose the password hash")
	}
}

func TestGuardExpiredToken(t *testing.T) {
	guard, tokens, repo := newTestGuard(t)
	user := seedUser(t, repo, identity.RoleStandard)

	now := time.Now().UTC()
	tokens.WithClock(func() time.Time { return now })
	tok, err := tokens.Mint(user.ID, user.Role)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	tokens.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	if _, err := guard.Authorize(context.Background(), tok, ""); !errors.Is(err, token.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestGuardRoleOrdering(t *testing.T) {
	guard, tokens, repo := newTestGuard(t)
	standard := seedUser(t, repo, identity.RoleStandard)
	admin := seedUser(t, repo, identity.RoleAdmin)

	standardTok, err := tokens.Mint(standard.ID, standard.Role)
	if err != nil {
		t.Fatalf("mint standard: %v", err)
	}
	adminTok, err := tokens.Mint(admin.ID, admin.Role)
	if err != nil {
		t.Fatalf("mint admin: %v", err)
	}

	if _, err := guard.Authorize(context.Background(), standardTok, identity.RoleAdmin); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
	if _, err := guard.Authorize(context.Background(), adminTok, identity.RoleStandard); err != nil {
		t.Fatalf("admin should satisfy standard: %v", err)
	}
	if _, err := guard.Authorize(context.Background(), adminTok, identity.RoleAdmin); err != nil {
		t.Fatalf("admin should satisfy admin: %v", err)
	}
}

func TestGuardUnknownSubject(t *testing.T) {
	guard, tokens, _ := newTestGuard(t)

	tok, err := tokens.Mint(uuid.NewString(), identity.RoleStandard)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := guard.Authorize(context.Background(), tok, ""); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestGuardGarbageToken(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	if _, err := guard.Authorize(context.Background(), "not-a-token", ""); !errors.Is(err, token.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
