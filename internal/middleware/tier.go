package middleware

import (
	"net/http"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// RequireTier returns middleware that restricts access to reviewers holding
// one of the given authority tiers.
func RequireTier(tiers ...decision.AuthorityTier) func(http.Handler) http.Handler {
	allowed := make(map[decision.AuthorityTier]bool, len(tiers))
	for _, t := range tiers {
		allowed[t] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rv := ReviewerFromContext(r.Context())
			if rv == nil {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			if !allowed[rv.Tier] {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
