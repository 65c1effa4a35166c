package repository

import (
	"testing"

	"github.com/greenloop/greenloop-backend/internal/models"
)

func TestRankingRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRankingRepository(db)

	ranking, err := repo.Get(42, models.RankingOverall)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ranking != nil {
		t.Errorf("Expected nil for unranked user, got %+v", ranking)
	}
}

func TestRankingRepository_SaveUpserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRankingRepository(db)

	user := createTestUser(t, db, "alice")

	ranking := &models.Ranking{
		UserID:     user.ID,
		Category:   models.RankingOverall,
		Score:      120,
		Rank:       3,
		RankChange: models.RankChangeNew,
	}
	if err := repo.Save(ranking); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// Reuse the record on the next sweep instead of inserting a new row.
	ranking.Score = 150
	ranking.PreviousRank = 3
	ranking.Rank = 1
	ranking.RankChange = models.RankChangeUp
	if err := repo.Save(ranking); err != nil {
		t.Fatalf("Second Save() failed: %v", err)
	}

	got, err := repo.Get(user.ID, models.RankingOverall)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected ranking, got nil")
	}
	if got.Rank != 1 || got.PreviousRank != 3 || got.RankChange != models.RankChangeUp {
		t.Errorf("ranking = rank %d prev %d change %q, want 1/3/up", got.Rank, got.PreviousRank, got.RankChange)
	}

	count, err := repo.CountByCategory(models.RankingOverall)
	if err != nil {
		t.Fatalf("CountByCategory() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountByCategory() = %d after upsert, want 1", count)
	}
}

func TestRankingRepository_ListByCategoryOrdersByRank(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRankingRepository(db)

	names := []string{"alice", "bob", "carol"}
	for i, name := range names {
		user := createTestUser(t, db, name)
		ranking := &models.Ranking{
			UserID:   user.ID,
			Category: models.RankingActions,
			Score:    float64(100 - i*10),
			// Insert out of rank order to exercise the sort.
			Rank:       len(names) - i,
			RankChange: models.RankChangeNew,
		}
		if err := repo.Save(ranking); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	rankings, err := repo.ListByCategory(models.RankingActions)
	if err != nil {
		t.Fatalf("ListByCategory() failed: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("ListByCategory() returned %d rankings, want 3", len(rankings))
	}
	for i, r := range rankings {
		if r.Rank != i+1 {
			t.Errorf("position %d has rank %d, want %d", i, r.Rank, i+1)
		}
	}
	if rankings[0].User.Username != "carol" {
		t.Errorf("rank 1 user = %q, want %q (preloaded)", rankings[0].User.Username, "carol")
	}
}
