package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

type mockChallengeRepository struct {
	byTitle map[string]*models.Challenge
}

func (m *mockChallengeRepository) GetByTitle(title string) (*models.Challenge, error) {
	if c, ok := m.byTitle[title]; ok {
		return c, nil
	}
	return nil, nil
}

func (m *mockChallengeRepository) Create(challenge *models.Challenge) error {
	challenge.ID = uint(len(m.byTitle) + 1)
	m.byTitle[challenge.Title] = challenge
	return nil
}

type mockRewardRepository struct {
	byName map[string]*models.Reward
}

func (m *mockRewardRepository) GetByName(name string) (*models.Reward, error) {
	if r, ok := m.byName[name]; ok {
		return r, nil
	}
	return nil, nil
}

func (m *mockRewardRepository) Create(reward *models.Reward) error {
	reward.ID = uint(len(m.byName) + 1)
	m.byName[reward.Name] = reward
	return nil
}

const testCatalog = `
challenges:
  - title: "Bike to Work Week"
    description: "Commute by bike five times"
    category: "transport"
    difficulty: "easy"
    target_value: 5
    target_unit: "times"
    reward_points: 100
    reward_badge: "bike-hero"
    recurrence: "weekly"
    duration_days: 90
  - title: "Water Saver"
    category: "water"
    target_value: 500
    target_unit: "liters"
    reward_points: 150
    min_level: 3

rewards:
  - name: "Eco Warrior Title"
    type: "title"
    value: "Eco Warrior"
    rarity: "rare"
    cost_points: 500
    min_streak_days: 14
  - name: "Founding Member Badge"
    type: "badge"
    value: "founding-member"
    cost_points: 100
    max_recipients: 50
    expires_in_days: 30
`

func newTestSeeder() (*Seeder, *mockChallengeRepository, *mockRewardRepository) {
	challengeRepo := &mockChallengeRepository{byTitle: make(map[string]*models.Challenge)}
	rewardRepo := &mockRewardRepository{byName: make(map[string]*models.Reward)}
	log := logger.New("debug", "text", "stdout")

	seeder := NewWithInterfaces(challengeRepo, rewardRepo, log)
	seeder.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	return seeder, challengeRepo, rewardRepo
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestRunCreatesCatalogEntries(t *testing.T) {
	seeder, challengeRepo, rewardRepo := newTestSeeder()

	if err := seeder.Run(writeCatalog(t, testCatalog)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(challengeRepo.byTitle) != 2 {
		t.Fatalf("created %d challenges, want 2", len(challengeRepo.byTitle))
	}
	bike := challengeRepo.byTitle["Bike to Work Week"]
	if bike.CreatorType != models.CreatorSystem {
		t.Errorf("creator_type = %q, want system", bike.CreatorType)
	}
	if !bike.Active {
		t.Error("seeded challenge should be active")
	}
	if got := bike.EndsAt.Sub(bike.StartsAt); got != 90*24*time.Hour {
		t.Errorf("challenge window = %v, want 90 days", got)
	}
	if water := challengeRepo.byTitle["Water Saver"]; water.MinLevel != 3 {
		t.Errorf("min_level = %d, want 3", water.MinLevel)
	}

	if len(rewardRepo.byName) != 2 {
		t.Fatalf("created %d rewards, want 2", len(rewardRepo.byName))
	}
	title := rewardRepo.byName["Eco Warrior Title"]
	if title.Criteria.MinStreakDays != 14 {
		t.Errorf("min_streak_days = %d, want 14", title.Criteria.MinStreakDays)
	}
	badge := rewardRepo.byName["Founding Member Badge"]
	if badge.ExpiresAt == nil {
		t.Fatal("expires_at should be set")
	}
	if badge.MaxRecipients != 50 {
		t.Errorf("max_recipients = %d, want 50", badge.MaxRecipients)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	seeder, challengeRepo, rewardRepo := newTestSeeder()
	path := writeCatalog(t, testCatalog)

	for i := 0; i < 2; i++ {
		if err := seeder.Run(path); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}

	if len(challengeRepo.byTitle) != 2 || len(rewardRepo.byName) != 2 {
		t.Errorf("got %d challenges and %d rewards after reseeding, want 2 and 2",
			len(challengeRepo.byTitle), len(rewardRepo.byName))
	}
}

func TestRunRejectsInvalidChallenge(t *testing.T) {
	seeder, _, _ := newTestSeeder()
	path := writeCatalog(t, `
challenges:
  - title: "Broken"
    category: "waste"
    target_value: 0
    target_unit: "kg"
`)

	if err := seeder.Run(path); err == nil {
		t.Fatal("expected error for zero target value")
	}
}

func TestRunMissingFile(t *testing.T) {
	seeder, _, _ := newTestSeeder()
	if err := seeder.Run(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
