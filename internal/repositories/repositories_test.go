package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with the local migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestMappingRepository(t *testing.T) {
	ctx := context.Background()
	mapping := func(owner, email, guid, core string) *models.IdentityMapping {
		return &models.IdentityMapping{OwnerID: owner, Email: email, SSOGuid: guid, CoreID: core}
	}

	t.Run("Insert and find", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMappingRepository(db, time.Second)
		if err := repo.Insert(ctx, mapping("owner-1", "a@example.com", "guid-1", "core-1")); err != nil {
			t.Fatalf("failed to insert mapping: %v", err)
		}

		byGuid, err := repo.FindBySSOGuid(ctx, "guid-1")
		if err != nil {
			t.Fatalf("FindBySSOGuid() error = %v", err)
		}
		m, ok := byGuid.Get()
		if !ok {
			t.Fatal("expected mapping to be found")
		}
		if m.OwnerID != "owner-1" || m.CoreID != "core-1" || m.Secondary {
			t.Errorf("unexpected mapping %+v", m)
		}
		if m.CreatedAt.IsZero() {
			t.Error("created_at should be set")
		}

		byOwner, _ := repo.FindByOwner(ctx, "owner-1")
		if !byOwner.IsFound() {
			t.Error("expected mapping by owner")
		}

		missing, err := repo.FindBySSOGuid(ctx, "nope")
		if err != nil || missing.IsFound() {
			t.Errorf("expected NotFound without error, got %v, %v", missing, err)
		}
	})

	t.Run("Insert rejects duplicates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMappingRepository(db, time.Second)
		repo.Insert(ctx, mapping("owner-1", "a@example.com", "guid-1", "core-1"))

		tc := []struct {
			name string
			m    *models.IdentityMapping
		}{
			{name: "owner", m: mapping("owner-1", "b@example.com", "guid-2", "core-2")},
			{name: "email", m: mapping("owner-2", "a@example.com", "guid-2", "core-2")},
			{name: "sso guid", m: mapping("owner-2", "b@example.com", "guid-1", "core-2")},
			{name: "core id", m: mapping("owner-2", "b@example.com", "guid-2", "core-1")},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := repo.Insert(ctx, tt.m); !errors.Is(err, shared.ErrUniqueViolation) {
					t.Errorf("expected ErrUniqueViolation, got %v", err)
				}
			})
		}

		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected 1 mapping, got %d", n)
		}
	})

	t.Run("Insert validates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewMappingRepository(db, 0).Insert(ctx, mapping("owner-1", "", "guid-1", "core-1"))
		if !errors.Is(err, models.ErrInvalidModel) {
			t.Errorf("expected ErrInvalidModel, got %v", err)
		}
	})
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Start assigns sequences", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db, time.Second)
		first, err := repo.Start(ctx, models.CategoryUsers, false)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		second, err := repo.Start(ctx, models.CategoryPlaylists, true)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if first.Sequence != 1 || second.Sequence != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
		}
		if first.ID == "" || first.Status != models.RunRunning {
			t.Errorf("unexpected run %+v", first)
		}
	})

	t.Run("Finish and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db, time.Second)
		run, _ := repo.Start(ctx, models.CategoryUsers, false)
		run.Status = models.RunCompleted
		run.Processed, run.Skipped, run.Errored = 5, 2, 1

		if err := repo.Finish(ctx, run); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		stored, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if stored.Status != models.RunCompleted || stored.Processed != 5 || stored.Errored != 1 {
			t.Errorf("unexpected stored run %+v", stored)
		}
		if stored.FinishedAt == nil {
			t.Error("finished_at should be set")
		}
		if stored.Error != "" {
			t.Errorf("expected empty error, got %q", stored.Error)
		}
	})

	t.Run("Finish unknown run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := &models.IngestRun{ID: "ghost", Category: models.CategoryUsers, Status: models.RunFailed}
		if err := NewRunRepository(db, 0).Finish(ctx, run); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List newest first by category", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db, 0)
		repo.Start(ctx, models.CategoryUsers, false)
		repo.Start(ctx, models.CategoryPlaylists, false)
		latest, _ := repo.Start(ctx, models.CategoryUsers, true)

		runs, err := repo.List(ctx, models.CategoryUsers, 10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(runs) != 2 || runs[0].ID != latest.ID || !runs[0].DryRun {
			t.Errorf("unexpected runs %+v", runs)
		}

		all, _ := repo.List(ctx, "", 2)
		if len(all) != 2 {
			t.Errorf("expected limit of 2, got %d", len(all))
		}
	})
}

func TestSkippedItemRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	item := func(order int, lang string) *models.SkippedItem {
		return &models.SkippedItem{
			PlaylistID: "pl-1", Order: order, OwnerID: "owner-1",
			MediaComponentID: "mc", LanguageID: lang, CreatedAt: now, UpdatedAt: now,
			Reason: "catalog entry not found",
		}
	}

	db := setupTestDB(t)
	defer db.Close()
	repo := NewSkippedItemRepository(db, time.Second)

	if err := repo.Record(ctx, item(0, "529")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, item(1, "529")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, item(0, "496")); err != nil {
		t.Fatalf("re-recording should refresh the row: %v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	if items[0].LanguageID != "496" {
		t.Errorf("expected refreshed language 496, got %s", items[0].LanguageID)
	}
	if !items[0].CreatedAt.Equal(now) {
		t.Errorf("created_at round trip: got %v", items[0].CreatedAt)
	}

	undated := &models.SkippedItem{PlaylistID: "pl-2", OwnerID: "owner-1", MediaComponentID: "mc", LanguageID: "529", Reason: "missing"}
	if err := repo.Record(ctx, undated); err != nil {
		t.Fatalf("Record() without timestamps error = %v", err)
	}
	items, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() with null timestamps error = %v", err)
	}
	if len(items) != 3 || !items[2].CreatedAt.IsZero() || !items[2].UpdatedAt.IsZero() {
		t.Errorf("null timestamps should scan as zero, got %+v", items[len(items)-1])
	}
	if err := repo.Clear(ctx, "pl-2", 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if err := repo.Clear(ctx, "pl-1", 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("expected 1 row after clear, got %d", n)
	}
	if err := repo.Clear(ctx, "pl-1", 9); err != nil {
		t.Errorf("clearing a missing row should not fail: %v", err)
	}
}
