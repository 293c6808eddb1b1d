package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/service"
)

type reviewerCtxKey struct{}

// DefaultReviewerID is the fixed id of the development director injected when
// auth is disabled. The seeded director account uses the same id so that
// directory lookups resolve it.
const DefaultReviewerID = "00000000-0000-0000-0000-000000000000"

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":            true,
	"/api/v1/auth/login": true,
}

// Auth returns middleware that validates Bearer JWT credentials and stores
// the authenticated reviewer in the request context. When authEnabled is
// false, a synthetic director-tier reviewer is injected instead.
func Auth(authSvc *service.AuthService, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				dev := &reviewer.Reviewer{
					ID:      DefaultReviewerID,
					Email:   "director@localhost",
					Name:    "Director",
					Tier:    decision.TierDirector,
					Enabled: true,
				}
				ctx := context.WithValue(r.Context(), reviewerCtxKey{}, dev)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Skip auth for public paths.
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// WebSocket clients cannot set headers; auth via ?token= query parameter.
			if r.URL.Path == "/ws" {
				tokenParam := r.URL.Query().Get("token")
				if tokenParam == "" {
					http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
					return
				}
				claims, err := authSvc.ValidateAccessToken(tokenParam)
				if err != nil {
					http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), reviewerCtxKey{}, reviewerFromClaims(claims))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := authSvc.ValidateAccessToken(token)
			if err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), reviewerCtxKey{}, reviewerFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reviewerFromClaims builds the context reviewer from token claims. The role
// title is not carried in the token; review handling re-resolves identity
// through the directory before recording it.
func reviewerFromClaims(claims *reviewer.TokenClaims) *reviewer.Reviewer {
	return &reviewer.Reviewer{
		ID:      claims.ReviewerID,
		Email:   claims.Email,
		Name:    claims.Name,
		Tier:    claims.Tier,
		Enabled: true,
	}
}

// ReviewerFromContext returns the authenticated reviewer from the request context.
func ReviewerFromContext(ctx context.Context) *reviewer.Reviewer {
	rv, _ := ctx.Value(reviewerCtxKey{}).(*reviewer.Reviewer)
	return rv
}

// ReviewerCtxKeyForTest returns the context key used for storing the reviewer.
// Exported only for use in tests that need to inject a reviewer into the context.
func ReviewerCtxKeyForTest() any {
	return reviewerCtxKey{}
}
