package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.CurrentReviewer)

		// Decisions
		r.Post("/decisions", h.SubmitDecision)
		r.Get("/decisions", h.ListDecisions)
		r.Get("/decisions/{id}", h.GetDecision)
		r.Get("/decisions/{id}/audit", h.GetDecisionAudit)
		r.Post("/decisions/{id}/reviews", h.SubmitReview)

		// Review queue
		r.Get("/reviews/pending", h.PendingReviews)

		// Reviewer administration (director only)
		directorOnly := middleware.RequireTier(decision.TierDirector)
		r.With(directorOnly).Get("/reviewers", h.ListReviewers)
		r.With(directorOnly).Post("/reviewers", h.CreateReviewer)
		r.With(directorOnly).Get("/reviewers/{id}", h.GetReviewer)
	})

	// Live decision events for the review dashboard
	r.Get("/ws", h.HandleWS)
}
