package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	arbhttp "github.com/arbiterhq/arbiter/internal/adapter/http"
	"github.com/arbiterhq/arbiter/internal/adapter/memory"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/middleware"
	"github.com/arbiterhq/arbiter/internal/service"
)

type testEnv struct {
	router *chi.Mux
	store  *memory.Store
	auth   *service.AuthService
}

// newTestEnv builds a router over the in-memory store. With auth disabled the
// middleware injects the default director identity, which is also seeded into
// the store so directory lookups resolve.
func newTestEnv(t *testing.T, authEnabled bool) *testEnv {
	t.Helper()

	store := memory.NewStore()
	authCfg := &config.Auth{
		Enabled:              authEnabled,
		JWTSecret:            "test-secret-0123456789abcdef",
		AccessTokenExpiry:    15 * time.Minute,
		BcryptCost:           4,
		DefaultDirectorEmail: "director@test.com",
		DefaultDirectorPass:  "Directorpass123",
	}
	authSvc := service.NewAuthService(store, authCfg)
	if err := authSvc.SeedDefaultDirector(context.Background(), middleware.DefaultReviewerID); err != nil {
		t.Fatalf("seed director: %v", err)
	}

	oversight := service.NewOversightService(store, store, nil, decision.DefaultPolicy(), nil)
	h := &arbhttp.Handlers{
		Oversight: oversight,
		Auth:      authSvc,
		Hub:       ws.NewHub(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(authSvc, authEnabled))
	arbhttp.MountRoutes(r, h)

	return &testEnv{router: r, store: store, auth: authSvc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", reviewer.LoginRequest{Email: email, Password: password}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp reviewer.LoginResponse
	decodeBody(t, rec, &resp)
	return resp.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func submitBody(decisionType string, confidence, impact float64) decision.SubmitRequest {
	return decision.SubmitRequest{
		SourceSystem:    "exemption-pipeline",
		DecisionType:    decisionType,
		ConfidenceScore: confidence,
		Recommendation:  json.RawMessage(`{"action":"approve_exemption","parcel":"12-0345"}`),
		FinancialImpact: impact,
	}
}

func TestSubmitDecisionEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("routine_exemption", 0.97, 450), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var got decision.Record
	decodeBody(t, rec, &got)
	if got.ID == "" {
		t.Error("record has no id")
	}
	if got.Status != decision.StatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
	if len(got.AuditTrail) != 1 {
		t.Errorf("audit trail = %d entries, want 1", len(got.AuditTrail))
	}
}

func TestSubmitDecisionEndpoint_Invalid(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("routine_exemption", 1.5, 0), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &resp)
	if resp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestSubmitDecisionEndpoint_BadBody(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetDecisionEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("routine_exemption", 0.97, 0), "")
	var created decision.Record
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/v1/decisions/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got decision.Record
	decodeBody(t, rec, &got)
	if got.ID != created.ID {
		t.Errorf("id = %s, want %s", got.ID, created.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/decisions/missing-id", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing decision status = %d, want 404", rec.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("routine_exemption", 0.97, 0), "")
	var created decision.Record
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/decisions/%s/audit", created.ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		DecisionID string                `json:"decision_id"`
		AuditTrail []decision.AuditEntry `json:"audit_trail"`
	}
	decodeBody(t, rec, &resp)
	if resp.DecisionID != created.ID {
		t.Errorf("decision_id = %s", resp.DecisionID)
	}
	if len(resp.AuditTrail) != 1 || resp.AuditTrail[0].Action != decision.AuditAutoApproved {
		t.Errorf("audit trail = %+v", resp.AuditTrail)
	}
}

func TestListDecisionsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	// One auto-approved, one pending.
	env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("routine_exemption", 0.97, 0), "")
	env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("fraud_detection", 0.99, 0), "")

	rec := env.do(t, http.MethodGet, "/api/v1/decisions", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pending []decision.Record
	decodeBody(t, rec, &pending)
	if len(pending) != 1 {
		t.Errorf("default listing = %d records, want 1 pending", len(pending))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/decisions?status=approved", nil, "")
	var approved []decision.Record
	decodeBody(t, rec, &approved)
	if len(approved) != 1 {
		t.Errorf("approved listing = %d records, want 1", len(approved))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/decisions?status=bogus", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/decisions?limit=abc", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", rec.Code)
	}
}

func TestSubmitReviewEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("fraud_detection", 0.99, 0), "")
	var created decision.Record
	decodeBody(t, rec, &created)
	if created.Status != decision.StatusPendingReview {
		t.Fatalf("status = %s, want pending", created.Status)
	}

	reviewPath := fmt.Sprintf("/api/v1/decisions/%s/reviews", created.ID)

	// The default identity is a director, so approval of the director-level
	// record succeeds.
	rec = env.do(t, http.MethodPost, reviewPath, decision.ReviewRequest{Action: decision.ActionApprove, Comments: "confirmed"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("review status = %d: %s", rec.Code, rec.Body.String())
	}
	var result decision.ReviewResult
	decodeBody(t, rec, &result)
	if result.Status != decision.StatusApproved {
		t.Errorf("result status = %s", result.Status)
	}

	// A second review hits the terminal record.
	rec = env.do(t, http.MethodPost, reviewPath, decision.ReviewRequest{Action: decision.ActionReject}, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("review on terminal = %d, want 409", rec.Code)
	}
}

func TestSubmitReviewEndpoint_OverrideValidation(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("fraud_detection", 0.99, 0), "")
	var created decision.Record
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/decisions/%s/reviews", created.ID),
		decision.ReviewRequest{Action: decision.ActionOverride, ReplacementRecommendation: json.RawMessage(`{}`)}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("override without reason = %d, want 400", rec.Code)
	}
}

func TestPendingReviewsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("fraud_detection", 0.99, 0), "")
	env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("data_correction", 0.80, 0), "")

	rec := env.do(t, http.MethodGet, "/api/v1/reviews/pending", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pending []decision.Record
	decodeBody(t, rec, &pending)
	if len(pending) != 2 {
		t.Errorf("pending = %d records, want 2 for director", len(pending))
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	token := env.login(t, "director@test.com", "Directorpass123")
	if token == "" {
		t.Fatal("empty access token")
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login",
		reviewer.LoginRequest{Email: "director@test.com", Password: "wrong"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials = %d, want 401", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/decisions", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d, want 401", rec.Code)
	}

	token := env.login(t, "director@test.com", "Directorpass123")
	rec = env.do(t, http.MethodGet, "/api/v1/decisions", nil, token)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated = %d, want 200", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d", rec.Code)
	}
	var me reviewer.Reviewer
	decodeBody(t, rec, &me)
	if me.Email != "director@test.com" || me.Tier != decision.TierDirector {
		t.Errorf("me = %+v", me)
	}
}

func TestReviewerAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/reviewers", reviewer.CreateRequest{
		Email:    "staff@test.com",
		Name:     "Sam Staff",
		Role:     "Appraisal Staff",
		Tier:     decision.TierStaff,
		Password: "staffpass123",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reviewer = %d: %s", rec.Code, rec.Body.String())
	}
	var created reviewer.Reviewer
	decodeBody(t, rec, &created)
	if created.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reviewers", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list reviewers = %d", rec.Code)
	}
	var reviewers []reviewer.Reviewer
	decodeBody(t, rec, &reviewers)
	if len(reviewers) != 2 {
		t.Errorf("reviewers = %d, want seeded director + created staff", len(reviewers))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reviewers/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get reviewer = %d", rec.Code)
	}
}

func TestReviewerAdminRequiresDirector(t *testing.T) {
	env := newTestEnv(t, true)

	// Register a staff account and act with its token.
	_, err := env.auth.Register(context.Background(), &reviewer.CreateRequest{
		Email:    "staff@test.com",
		Name:     "Sam Staff",
		Tier:     decision.TierStaff,
		Password: "staffpass123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := env.login(t, "staff@test.com", "staffpass123")

	rec := env.do(t, http.MethodGet, "/api/v1/reviewers", nil, token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff on admin route = %d, want 403", rec.Code)
	}
}

func TestReviewAuthorityOverHTTP(t *testing.T) {
	env := newTestEnv(t, true)

	_, err := env.auth.Register(context.Background(), &reviewer.CreateRequest{
		Email:    "staff@test.com",
		Name:     "Sam Staff",
		Tier:     decision.TierStaff,
		Password: "staffpass123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	staffToken := env.login(t, "staff@test.com", "staffpass123")
	directorToken := env.login(t, "director@test.com", "Directorpass123")

	rec := env.do(t, http.MethodPost, "/api/v1/decisions", submitBody("fraud_detection", 0.99, 0), directorToken)
	var created decision.Record
	decodeBody(t, rec, &created)

	reviewPath := fmt.Sprintf("/api/v1/decisions/%s/reviews", created.ID)
	rec = env.do(t, http.MethodPost, reviewPath, decision.ReviewRequest{Action: decision.ActionApprove}, staffToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff review of director-level record = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPost, reviewPath, decision.ReviewRequest{Action: decision.ActionApprove}, directorToken)
	if rec.Code != http.StatusOK {
		t.Errorf("director review = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Version string `json:"version"`
	}
	decodeBody(t, rec, &resp)
	if resp.Version == "" {
		t.Error("version is empty")
	}
}
