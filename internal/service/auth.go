package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/port/database"
)

const (
	tokenIssuer   = "arbiter-core"
	tokenAudience = "arbiter"
)

// AuthService handles reviewer registration, login, and JWT tokens.
type AuthService struct {
	store  database.Store
	cfg    *config.Auth
	secret []byte
	newID  func() string
	now    func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, cfg *config.Auth) *AuthService {
	return &AuthService{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Register creates a new reviewer with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *reviewer.CreateRequest) (*reviewer.Reviewer, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rv := &reviewer.Reviewer{
		ID:           s.newID(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		Tier:         req.Tier,
		PasswordHash: string(hash),
		Enabled:      true,
	}

	if err := s.store.CreateReviewer(ctx, rv); err != nil {
		return nil, fmt.Errorf("create reviewer: %w", err)
	}
	return rv, nil
}

// Login authenticates a reviewer and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, req reviewer.LoginRequest) (*reviewer.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	rv, err := s.store.GetReviewerByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("get reviewer: %w", err)
	}

	if !rv.Enabled {
		return nil, errors.New("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rv.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	accessToken, err := s.signJWT(rv)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	return &reviewer.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
		Reviewer:    *rv,
	}, nil
}

// ValidateAccessToken verifies a JWT and returns the claims.
func (s *AuthService) ValidateAccessToken(tokenStr string) (*reviewer.TokenClaims, error) {
	return s.verifyJWT(tokenStr)
}

// ListReviewers returns all registered reviewers.
func (s *AuthService) ListReviewers(ctx context.Context) ([]reviewer.Reviewer, error) {
	return s.store.ListReviewers(ctx)
}

// GetReviewer returns a reviewer by ID.
func (s *AuthService) GetReviewer(ctx context.Context, id string) (*reviewer.Reviewer, error) {
	return s.store.GetReviewer(ctx, id)
}

// ResetPassword replaces a reviewer's password without checking the old one.
// Admin CLI only; the HTTP surface never exposes it.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	rv, err := s.store.GetReviewerByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get reviewer: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	rv.PasswordHash = string(hash)
	if err := s.store.UpdateReviewer(ctx, rv); err != nil {
		return fmt.Errorf("update reviewer: %w", err)
	}
	return nil
}

// SeedDefaultDirector creates the initial director account when the reviewer
// directory is empty. The caller supplies the fixed id so that development
// requests running as the synthetic director resolve in the directory.
func (s *AuthService) SeedDefaultDirector(ctx context.Context, id string) error {
	reviewers, err := s.store.ListReviewers(ctx)
	if err != nil {
		return fmt.Errorf("list reviewers: %w", err)
	}
	if len(reviewers) > 0 {
		return nil // already seeded
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultDirectorPass), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	rv := &reviewer.Reviewer{
		ID:           id,
		Email:        s.cfg.DefaultDirectorEmail,
		Name:         "Director",
		Role:         "Director of Assessment",
		Tier:         decision.TierDirector,
		PasswordHash: string(hash),
		Enabled:      true,
	}
	if err := s.store.CreateReviewer(ctx, rv); err != nil {
		return fmt.Errorf("seed director: %w", err)
	}

	slog.Info("seeded default director account", "email", s.cfg.DefaultDirectorEmail)
	return nil
}

// --- JWT implementation (HS256 with stdlib) ---

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signJWT(rv *reviewer.Reviewer) (string, error) {
	now := s.now()
	claims := reviewer.TokenClaims{
		ReviewerID: rv.ID,
		Email:      rv.Email,
		Name:       rv.Name,
		Tier:       rv.Tier,
		IssuedAt:   now.Unix(),
		Expiry:     now.Add(s.cfg.AccessTokenExpiry).Unix(),
		JTI:        s.newID(),
		Audience:   tokenAudience,
		Issuer:     tokenIssuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := jwtHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyJWT(tokenStr string) (*reviewer.TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, errors.New("invalid signature")
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims reviewer.TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if s.now().Unix() > claims.Expiry {
		return nil, errors.New("token expired")
	}

	if claims.Audience != tokenAudience {
		return nil, errors.New("invalid token audience")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	return &claims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	// Add padding back
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
