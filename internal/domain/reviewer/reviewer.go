// Package reviewer defines the reviewer identity model: the people who act
// on governed decisions, each carrying a role title and an authority tier.
package reviewer

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// Reviewer is a registered human reviewer known to the directory.
type Reviewer struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Name         string                 `json:"name"`
	Role         string                 `json:"role"` // job title, e.g. "Senior Appraiser"
	Tier         decision.AuthorityTier `json:"tier"`
	PasswordHash string                 `json:"-"` // never serialized
	Enabled      bool                   `json:"enabled"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// CreateRequest is the input for registering a new reviewer.
type CreateRequest struct {
	Email    string                 `json:"email"`
	Name     string                 `json:"name"`
	Role     string                 `json:"role"`
	Tier     decision.AuthorityTier `json:"tier"`
	Password string                 `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	if !r.Tier.Valid() {
		return fmt.Errorf("%w: invalid tier %q, must be staff, supervisor, or director", domain.ErrValidation, r.Tier)
	}
	return nil
}

// LoginRequest is the input for reviewer authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string   `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int      `json:"expires_in"`   // seconds until the access token expires
	Reviewer    Reviewer `json:"reviewer"`
}

// TokenClaims contains the JWT payload fields.
type TokenClaims struct {
	ReviewerID string                 `json:"sub"`
	Email      string                 `json:"email"`
	Name       string                 `json:"name"`
	Tier       decision.AuthorityTier `json:"tier"`
	IssuedAt   int64                  `json:"iat"`
	Expiry     int64                  `json:"exp"`
	JTI        string                 `json:"jti,omitempty"`
	Audience   string                 `json:"aud,omitempty"`
	Issuer     string                 `json:"iss,omitempty"`
}
