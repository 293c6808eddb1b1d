package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/adapter/memory"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

func newTestAuthService(store *memory.Store) *AuthService {
	cfg := config.Auth{
		Enabled:              true,
		JWTSecret:            "test-secret-key-must-be-long-enough",
		AccessTokenExpiry:    15 * time.Minute,
		BcryptCost:           4, // low cost for fast tests
		DefaultDirectorEmail: "director@test.com",
		DefaultDirectorPass:  "Directorpass123",
	}
	return NewAuthService(store, &cfg)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(memory.NewStore())
	ctx := context.Background()

	rv, err := svc.Register(ctx, &reviewer.CreateRequest{
		Email:    "jane@example.com",
		Name:     "Jane Doe",
		Role:     "Senior Appraiser",
		Tier:     decision.TierSupervisor,
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rv.Email != "jane@example.com" {
		t.Errorf("email = %q, want jane@example.com", rv.Email)
	}
	if rv.Tier != decision.TierSupervisor {
		t.Errorf("tier = %q, want supervisor", rv.Tier)
	}
	if rv.PasswordHash == "Password123" {
		t.Error("password stored in plain text")
	}

	resp, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "jane@example.com",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("access token is empty")
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want %d", resp.ExpiresIn, int((15*time.Minute).Seconds()))
	}
	if resp.Reviewer.Email != "jane@example.com" {
		t.Errorf("reviewer email = %q, want jane@example.com", resp.Reviewer.Email)
	}
}

func TestAuthService_InvalidLogin(t *testing.T) {
	store := memory.NewStore()
	svc := newTestAuthService(store)
	ctx := context.Background()

	rv, err := svc.Register(ctx, &reviewer.CreateRequest{
		Email:    "jane@example.com",
		Name:     "Jane Doe",
		Tier:     decision.TierStaff,
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Wrong password
	if _, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrongpassword",
	}); err == nil {
		t.Fatal("expected error for wrong password")
	}

	// Unknown email
	if _, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "nobody@example.com",
		Password: "Password123",
	}); err == nil {
		t.Fatal("expected error for unknown email")
	}

	// Disabled account
	rv.Enabled = false
	if err := store.UpdateReviewer(ctx, rv); err != nil {
		t.Fatalf("disable reviewer: %v", err)
	}
	if _, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "jane@example.com",
		Password: "Password123",
	}); err == nil {
		t.Fatal("expected error for disabled account")
	}
}

func TestAuthService_JWTSignAndVerify(t *testing.T) {
	svc := newTestAuthService(memory.NewStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, &reviewer.CreateRequest{
		Email:    "jwt@test.com",
		Name:     "JWT Reviewer",
		Tier:     decision.TierDirector,
		Password: "Jwtpass1234",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "jwt@test.com",
		Password: "Jwtpass1234",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Email != "jwt@test.com" {
		t.Errorf("email = %q, want jwt@test.com", claims.Email)
	}
	if claims.Tier != decision.TierDirector {
		t.Errorf("tier = %q, want director", claims.Tier)
	}
	if claims.ReviewerID != resp.Reviewer.ID {
		t.Errorf("sub = %q, want %q", claims.ReviewerID, resp.Reviewer.ID)
	}
}

func TestAuthService_TokenExpired(t *testing.T) {
	svc := newTestAuthService(memory.NewStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, &reviewer.CreateRequest{
		Email:    "exp@test.com",
		Name:     "Expiry Reviewer",
		Tier:     decision.TierStaff,
		Password: "Password123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(ctx, reviewer.LoginRequest{Email: "exp@test.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Move the clock past the token expiry.
	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	if _, err := svc.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestAuthService_InvalidToken(t *testing.T) {
	svc := newTestAuthService(memory.NewStore())

	if _, err := svc.ValidateAccessToken("garbage.token.here"); err == nil {
		t.Fatal("expected error for invalid token")
	}

	if _, err := svc.ValidateAccessToken("not-even-three-parts"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestAuthService_SeedDefaultDirector(t *testing.T) {
	store := memory.NewStore()
	svc := newTestAuthService(store)
	ctx := context.Background()

	const fixedID = "00000000-0000-0000-0000-000000000000"

	if err := svc.SeedDefaultDirector(ctx, fixedID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rv, err := store.GetReviewer(ctx, fixedID)
	if err != nil {
		t.Fatalf("get seeded director: %v", err)
	}
	if rv.Tier != decision.TierDirector {
		t.Errorf("tier = %q, want director", rv.Tier)
	}

	// Second call is a no-op.
	if err := svc.SeedDefaultDirector(ctx, fixedID); err != nil {
		t.Fatalf("seed second: %v", err)
	}
	reviewers, err := store.ListReviewers(ctx)
	if err != nil {
		t.Fatalf("list reviewers: %v", err)
	}
	if len(reviewers) != 1 {
		t.Fatalf("got %d reviewers after double seed, want 1", len(reviewers))
	}

	// Seeded credentials log in.
	if _, err := svc.Login(ctx, reviewer.LoginRequest{
		Email:    "director@test.com",
		Password: "Directorpass123",
	}); err != nil {
		t.Fatalf("login as seeded director: %v", err)
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	svc := newTestAuthService(memory.NewStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, &reviewer.CreateRequest{
		Email:    "reset@test.com",
		Name:     "Reset Reviewer",
		Tier:     decision.TierStaff,
		Password: "Oldpassword1",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ResetPassword(ctx, "reset@test.com", "short"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short password err = %v, want ErrValidation", err)
	}

	if err := svc.ResetPassword(ctx, "reset@test.com", "Newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := svc.Login(ctx, reviewer.LoginRequest{Email: "reset@test.com", Password: "Oldpassword1"}); err == nil {
		t.Fatal("old password still accepted")
	}
	if _, err := svc.Login(ctx, reviewer.LoginRequest{Email: "reset@test.com", Password: "Newpassword1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
