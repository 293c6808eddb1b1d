package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbiterhq/arbiter/internal/adapter/postgres"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func newTestDecision() *decision.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &decision.Record{
		ID:              uuid.New().String(),
		SourceSystem:    "integration-test",
		DecisionType:    "routine_exemption",
		ConfidenceScore: 0.97,
		Recommendation:  json.RawMessage(`{"action":"approve_exemption"}`),
		SupportingEvidence: []json.RawMessage{
			json.RawMessage(`{"rule":"owner_occupied"}`),
		},
		RelatedEntityID:     "parcel-1138",
		Status:              decision.StatusPendingReview,
		RequiredReviewLevel: decision.LevelStaffReview,
		AuditTrail: []decision.AuditEntry{
			{Timestamp: now, Action: decision.AuditQueuedForReview, Actor: decision.SystemActor},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_DecisionCRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := newTestDecision()
	if err := store.CreateDecision(ctx, rec); err != nil {
		t.Fatalf("CreateDecision: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetDecision(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetDecision: %v", err)
		}
		if got.SourceSystem != rec.SourceSystem {
			t.Fatalf("expected source %q, got %q", rec.SourceSystem, got.SourceSystem)
		}
		if got.Version != 1 {
			t.Fatalf("expected version 1, got %d", got.Version)
		}
		if len(got.SupportingEvidence) != 1 {
			t.Fatalf("expected 1 evidence item, got %d", len(got.SupportingEvidence))
		}
		if len(got.AuditTrail) != 1 || got.AuditTrail[0].Action != decision.AuditQueuedForReview {
			t.Fatalf("unexpected audit trail: %+v", got.AuditTrail)
		}
		if got.FinalDecision != nil {
			t.Fatalf("expected nil final decision, got %s", got.FinalDecision)
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.GetDecision(ctx, uuid.New().String())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		got, err := store.GetDecision(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetDecision: %v", err)
		}

		got.Status = decision.StatusApproved
		got.FinalDecision = got.Recommendation
		got.AppendReview(decision.HumanReview{
			ReviewerID: uuid.New().String(),
			Timestamp:  time.Now().UTC(),
			Action:     decision.ActionApprove,
			Comments:   "looks right",
		}, "approved by staff reviewer")
		got.UpdatedAt = time.Now().UTC()

		if err := store.UpdateDecision(ctx, got); err != nil {
			t.Fatalf("UpdateDecision: %v", err)
		}
		if got.Version != 2 {
			t.Fatalf("expected version bump to 2, got %d", got.Version)
		}

		again, err := store.GetDecision(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetDecision after update: %v", err)
		}
		if again.Status != decision.StatusApproved {
			t.Fatalf("expected approved, got %s", again.Status)
		}
		if len(again.Reviews) != 1 {
			t.Fatalf("expected 1 review, got %d", len(again.Reviews))
		}
		if len(again.AuditTrail) != 2 {
			t.Fatalf("expected 2 audit entries, got %d", len(again.AuditTrail))
		}
		if again.FinalDecision == nil {
			t.Fatal("expected final decision to be set")
		}
	})

	t.Run("Update_StaleVersion", func(t *testing.T) {
		stale, err := store.GetDecision(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetDecision: %v", err)
		}
		stale.Version = stale.Version - 1 // simulate a lost race
		stale.Status = decision.StatusRejected

		err = store.UpdateDecision(ctx, stale)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict for stale version, got %v", err)
		}
	})
}

func TestStore_ListPendingDecisions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	older := newTestDecision()
	older.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	older.RequiredReviewLevel = decision.LevelSupervisorReview
	if err := store.CreateDecision(ctx, older); err != nil {
		t.Fatalf("CreateDecision older: %v", err)
	}

	newer := newTestDecision()
	newer.RequiredReviewLevel = decision.LevelSupervisorReview
	if err := store.CreateDecision(ctx, newer); err != nil {
		t.Fatalf("CreateDecision newer: %v", err)
	}

	resolved := newTestDecision()
	resolved.Status = decision.StatusApproved
	if err := store.CreateDecision(ctx, resolved); err != nil {
		t.Fatalf("CreateDecision resolved: %v", err)
	}

	pending, err := store.ListPendingDecisions(ctx, []decision.ReviewLevel{decision.LevelSupervisorReview})
	if err != nil {
		t.Fatalf("ListPendingDecisions: %v", err)
	}

	var olderIdx, newerIdx = -1, -1
	for i, rec := range pending {
		switch rec.ID {
		case older.ID:
			olderIdx = i
		case newer.ID:
			newerIdx = i
		case resolved.ID:
			t.Fatal("resolved decision returned in pending list")
		}
	}
	if olderIdx == -1 || newerIdx == -1 {
		t.Fatalf("expected both pending decisions in list, got %d records", len(pending))
	}
	if olderIdx > newerIdx {
		t.Fatal("expected oldest-first ordering")
	}
}

func TestStore_ReviewerCRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := uuid.New().String()
	email := "test-" + uuid.New().String()[:8] + "@example.com"

	rv := &reviewer.Reviewer{
		ID:           id,
		Email:        email,
		Name:         "Test Reviewer",
		Role:         "Senior Analyst",
		Tier:         decision.TierSupervisor,
		PasswordHash: "$2a$10$dummyhashforintegrationtest000000000000000000000000",
		Enabled:      true,
	}
	if err := store.CreateReviewer(ctx, rv); err != nil {
		t.Fatalf("CreateReviewer: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetReviewer(ctx, id)
		if err != nil {
			t.Fatalf("GetReviewer: %v", err)
		}
		if got.Email != email {
			t.Fatalf("expected email %q, got %q", email, got.Email)
		}
		if got.Tier != decision.TierSupervisor {
			t.Fatalf("expected supervisor tier, got %s", got.Tier)
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := store.GetReviewerByEmail(ctx, email)
		if err != nil {
			t.Fatalf("GetReviewerByEmail: %v", err)
		}
		if got.ID != id {
			t.Fatalf("expected reviewer %s, got %s", id, got.ID)
		}
	})

	t.Run("GetByEmail_NotFound", func(t *testing.T) {
		_, err := store.GetReviewerByEmail(ctx, "nobody@example.com")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		got, err := store.GetReviewer(ctx, id)
		if err != nil {
			t.Fatalf("GetReviewer: %v", err)
		}
		got.Tier = decision.TierDirector
		got.Enabled = false
		if err := store.UpdateReviewer(ctx, got); err != nil {
			t.Fatalf("UpdateReviewer: %v", err)
		}

		again, err := store.GetReviewer(ctx, id)
		if err != nil {
			t.Fatalf("GetReviewer after update: %v", err)
		}
		if again.Tier != decision.TierDirector {
			t.Fatalf("expected director tier, got %s", again.Tier)
		}
		if again.Enabled {
			t.Fatal("expected reviewer to be disabled")
		}
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		missing := &reviewer.Reviewer{ID: uuid.New().String(), Tier: decision.TierStaff}
		err := store.UpdateReviewer(ctx, missing)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
