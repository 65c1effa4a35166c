package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/notify"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// Mock repositories for testing
type mockUserRepository struct {
	users []models.User
}

func (m *mockUserRepository) List() ([]models.User, error) {
	out := make([]models.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

type mockRankingRepository struct {
	rankings map[string]map[uint]*models.Ranking // category -> user -> record
	failUser uint
	nextID   uint
}

func newMockRankingRepository() *mockRankingRepository {
	return &mockRankingRepository{rankings: make(map[string]map[uint]*models.Ranking)}
}

func (m *mockRankingRepository) Get(userID uint, category string) (*models.Ranking, error) {
	if r, ok := m.rankings[category][userID]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (m *mockRankingRepository) Save(ranking *models.Ranking) error {
	if ranking.UserID == m.failUser {
		return errors.New("storage unavailable")
	}
	if m.rankings[ranking.Category] == nil {
		m.rankings[ranking.Category] = make(map[uint]*models.Ranking)
	}
	if ranking.ID == 0 {
		m.nextID++
		ranking.ID = m.nextID
	}
	copied := *ranking
	m.rankings[ranking.Category][ranking.UserID] = &copied
	return nil
}

func (m *mockRankingRepository) ListByCategory(category string) ([]models.Ranking, error) {
	out := make([]models.Ranking, 0, len(m.rankings[category]))
	for _, r := range m.rankings[category] {
		out = append(out, *r)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Rank < out[i].Rank {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, recipient uint, notifType string, _ map[string]interface{}) {
	n.events = append(n.events, notifType)
	_ = recipient
}

func defaultWeights() Weights {
	return Weights{Goal: 10, Action: 2, Challenge: 5}
}

func newTestService(users []models.User) (*Service, *mockRankingRepository, *recordingNotifier) {
	userRepo := &mockUserRepository{users: users}
	rankingRepo := newMockRankingRepository()
	notifier := &recordingNotifier{}
	log := logger.New("debug", "text", "stdout")

	service := NewServiceWithInterfaces(userRepo, rankingRepo, notifier, defaultWeights(), log)
	service.now = func() time.Time { return time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC) }
	return service, rankingRepo, notifier
}

func TestScorePerCategory(t *testing.T) {
	service, _, _ := newTestService(nil)
	user := &models.User{CompletedGoals: 3, CompletedActions: 20, CompletedChallenges: 4, TotalCO2Saved: 12.5}

	tests := []struct {
		category string
		want     float64
	}{
		{models.RankingGoals, 3},
		{models.RankingActions, 20},
		{models.RankingChallenges, 4},
		{models.RankingCO2, 12.5},
		{models.RankingOverall, 3*10 + 20*2 + 4*5},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := service.Score(user, tt.category); got != tt.want {
				t.Errorf("Score(%s) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestRecomputeAllAssignsDenseRanks(t *testing.T) {
	users := []models.User{
		{ID: 1, CompletedGoals: 1, CompletedActions: 5, CompletedChallenges: 1},  // overall 25
		{ID: 2, CompletedGoals: 5, CompletedActions: 10, CompletedChallenges: 2}, // overall 80
		{ID: 3, CompletedGoals: 0, CompletedActions: 2, CompletedChallenges: 0},  // overall 4
	}
	service, rankingRepo, _ := newTestService(users)

	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}

	overall := rankingRepo.rankings[models.RankingOverall]
	wantRanks := map[uint]int{2: 1, 1: 2, 3: 3}
	for userID, want := range wantRanks {
		r := overall[userID]
		if r == nil {
			t.Fatalf("no overall ranking for user %d", userID)
		}
		if r.Rank != want {
			t.Errorf("user %d rank = %d, want %d", userID, r.Rank, want)
		}
		if r.RankChange != models.RankChangeNew {
			t.Errorf("user %d first-run rank_change = %q, want %q", userID, r.RankChange, models.RankChangeNew)
		}
	}

	// Every category got a complete 1..N assignment.
	for _, category := range models.RankingCategories() {
		if len(rankingRepo.rankings[category]) != len(users) {
			t.Errorf("category %s ranked %d users, want %d", category, len(rankingRepo.rankings[category]), len(users))
		}
	}
}

func TestRecomputeTiebreakIsDeterministic(t *testing.T) {
	// Same overall score; user 2 has more goals, user 1 and 3 tie fully and
	// fall back to id order.
	users := []models.User{
		{ID: 3, CompletedActions: 10}, // overall 20
		{ID: 1, CompletedActions: 10}, // overall 20
		{ID: 2, CompletedGoals: 2},    // overall 20
	}
	service, rankingRepo, _ := newTestService(users)

	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}

	overall := rankingRepo.rankings[models.RankingOverall]
	wantRanks := map[uint]int{2: 1, 1: 2, 3: 3}
	for userID, want := range wantRanks {
		if got := overall[userID].Rank; got != want {
			t.Errorf("user %d rank = %d, want %d", userID, got, want)
		}
	}
}

func TestRecomputeTracksMovement(t *testing.T) {
	users := []models.User{
		{ID: 1, CompletedActions: 10},
		{ID: 2, CompletedActions: 5},
	}
	service, rankingRepo, _ := newTestService(users)

	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("first RecomputeAll() error = %v", err)
	}

	// User 2 overtakes user 1 before the second sweep.
	service.userRepo = &mockUserRepository{users: []models.User{
		{ID: 1, CompletedActions: 10},
		{ID: 2, CompletedActions: 30},
	}}

	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("second RecomputeAll() error = %v", err)
	}

	actions := rankingRepo.rankings[models.RankingActions]
	if r := actions[2]; r.Rank != 1 || r.PreviousRank != 2 || r.RankChange != models.RankChangeUp {
		t.Errorf("user 2: got rank=%d prev=%d change=%q, want 1/2/up", r.Rank, r.PreviousRank, r.RankChange)
	}
	if r := actions[1]; r.Rank != 2 || r.PreviousRank != 1 || r.RankChange != models.RankChangeDown {
		t.Errorf("user 1: got rank=%d prev=%d change=%q, want 2/1/down", r.Rank, r.PreviousRank, r.RankChange)
	}

	// A third sweep with unchanged counters reports "same".
	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("third RecomputeAll() error = %v", err)
	}
	if r := rankingRepo.rankings[models.RankingActions][2]; r.RankChange != models.RankChangeSame {
		t.Errorf("unchanged rank reported %q, want %q", r.RankChange, models.RankChangeSame)
	}
}

func TestRecomputeIsolatesPerUserFailure(t *testing.T) {
	users := []models.User{
		{ID: 1, CompletedActions: 10},
		{ID: 2, CompletedActions: 5},
	}
	service, rankingRepo, _ := newTestService(users)
	rankingRepo.failUser = 1

	err := service.RecomputeAll(context.Background())
	if err == nil {
		t.Fatal("expected error when a ranking save fails")
	}
	// User 2 was still ranked in every category.
	for _, category := range models.RankingCategories() {
		if rankingRepo.rankings[category][2] == nil {
			t.Errorf("user 2 missing from category %s", category)
		}
	}
}

func TestTopThreeNotification(t *testing.T) {
	var users []models.User
	for i := uint(1); i <= 5; i++ {
		users = append(users, models.User{ID: i, CompletedActions: int(i) * 10})
	}
	service, _, notifier := newTestService(users)

	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}

	// First sweep: three users enter the top three in each of the five
	// categories.
	want := 3 * len(models.RankingCategories())
	if len(notifier.events) != want {
		t.Fatalf("got %d notifications, want %d", len(notifier.events), want)
	}
	for _, event := range notifier.events {
		if event != notify.TypeRankAchievement {
			t.Errorf("unexpected notification type %q", event)
		}
	}

	// A second unchanged sweep fires nothing.
	notifier.events = nil
	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}
	if len(notifier.events) != 0 {
		t.Errorf("unchanged sweep fired %d notifications, want 0", len(notifier.events))
	}
}

func TestTopLimitsResults(t *testing.T) {
	users := []models.User{
		{ID: 1, CompletedActions: 30},
		{ID: 2, CompletedActions: 20},
		{ID: 3, CompletedActions: 10},
	}
	service, _, _ := newTestService(users)
	if err := service.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}

	top, err := service.Top(models.RankingActions, 2)
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Top(2) returned %d entries", len(top))
	}
	if top[0].UserID != 1 || top[1].UserID != 2 {
		t.Errorf("unexpected top order: %d, %d", top[0].UserID, top[1].UserID)
	}
}
