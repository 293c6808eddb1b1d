package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/middleware"
	"github.com/arbiterhq/arbiter/internal/service"
)

const defaultListLimit = 50

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Oversight *service.OversightService
	Auth      *service.AuthService
	Hub       *ws.Hub
}

// ---------------------------------------------------------------------------
// Decisions
// ---------------------------------------------------------------------------

// SubmitDecision handles POST /api/v1/decisions
func (h *Handlers) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[decision.SubmitRequest](w, r)
	if !ok {
		return
	}

	rec, err := h.Oversight.SubmitDecision(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "decision submission failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetDecision handles GET /api/v1/decisions/{id}
func (h *Handlers) GetDecision(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	rec, err := h.Oversight.GetDecision(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetDecisionAudit handles GET /api/v1/decisions/{id}/audit
func (h *Handlers) GetDecisionAudit(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	rec, err := h.Oversight.GetDecision(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}

	trail := rec.AuditTrail
	if trail == nil {
		trail = []decision.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decision_id": rec.ID,
		"audit_trail": trail,
	})
}

// ListDecisions handles GET /api/v1/decisions?status=&limit=
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(decision.StatusPendingReview)
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.Oversight.ListByStatus(r.Context(), decision.Status(status), limit)
	if err != nil {
		writeDomainError(w, err, "decision listing failed")
		return
	}
	if records == nil {
		records = []decision.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

// SubmitReview handles POST /api/v1/decisions/{id}/reviews.
// The reviewer identity comes from the authenticated context, never from the
// request body.
func (h *Handlers) SubmitReview(w http.ResponseWriter, r *http.Request) {
	rv := middleware.ReviewerFromContext(r.Context())
	if rv == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[decision.ReviewRequest](w, r)
	if !ok {
		return
	}

	id := urlParam(r, "id")
	result, err := h.Oversight.SubmitReview(r.Context(), id, rv.ID, &req)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PendingReviews handles GET /api/v1/reviews/pending, returning the decisions
// the authenticated reviewer's tier covers, oldest first.
func (h *Handlers) PendingReviews(w http.ResponseWriter, r *http.Request) {
	rv := middleware.ReviewerFromContext(r.Context())
	if rv == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	records, err := h.Oversight.PendingReviews(r.Context(), rv.ID)
	if err != nil {
		writeDomainError(w, err, "pending review query failed")
		return
	}
	if records == nil {
		records = []decision.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[reviewer.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CurrentReviewer handles GET /api/v1/auth/me
func (h *Handlers) CurrentReviewer(w http.ResponseWriter, r *http.Request) {
	rv := middleware.ReviewerFromContext(r.Context())
	if rv == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

// ---------------------------------------------------------------------------
// Reviewer administration (director only)
// ---------------------------------------------------------------------------

// ListReviewers handles GET /api/v1/reviewers
func (h *Handlers) ListReviewers(w http.ResponseWriter, r *http.Request) {
	reviewers, err := h.Auth.ListReviewers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if reviewers == nil {
		reviewers = []reviewer.Reviewer{}
	}
	writeJSON(w, http.StatusOK, reviewers)
}

// CreateReviewer handles POST /api/v1/reviewers
func (h *Handlers) CreateReviewer(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[reviewer.CreateRequest](w, r)
	if !ok {
		return
	}

	rv, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "reviewer creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// GetReviewer handles GET /api/v1/reviewers/{id}
func (h *Handlers) GetReviewer(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	rv, err := h.Auth.GetReviewer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "reviewer not found")
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

// ---------------------------------------------------------------------------
// Live updates
// ---------------------------------------------------------------------------

// HandleWS handles GET /ws, upgrading to a WebSocket that streams decision
// events to dashboard clients.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	h.Hub.HandleWS(w, r)
}
