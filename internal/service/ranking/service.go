// Package ranking recomputes leaderboard positions for every category from
// the users' counters. Rankings are derived data: a full sweep rebuilds them
// from scratch, so drift never survives past the next run.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	prommetrics "github.com/greenloop/greenloop-backend/internal/metrics"
	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/notify"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// topRankThreshold is the rank at or above which entering triggers an
// achievement notification.
const topRankThreshold = 3

// UserRepository interface for user listing.
type UserRepository interface {
	List() ([]models.User, error)
}

// RankingRepository interface for ranking persistence.
type RankingRepository interface {
	Get(userID uint, category string) (*models.Ranking, error)
	Save(ranking *models.Ranking) error
	ListByCategory(category string) ([]models.Ranking, error)
}

// Weights hold the composite overall-score weights.
type Weights struct {
	Goal      int
	Action    int
	Challenge int
}

// Service recomputes rankings.
type Service struct {
	userRepo    UserRepository
	rankingRepo RankingRepository
	notifier    notify.Notifier
	weights     Weights
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new ranking service with concrete repository types.
func NewService(
	userRepo *repository.UserRepository,
	rankingRepo *repository.RankingRepository,
	notifier notify.Notifier,
	weights Weights,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(userRepo, rankingRepo, notifier, weights, log)
}

// NewServiceWithInterfaces creates a new ranking service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	rankingRepo RankingRepository,
	notifier notify.Notifier,
	weights Weights,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		rankingRepo: rankingRepo,
		notifier:    notifier,
		weights:     weights,
		log:         log,
		now:         time.Now,
	}
}

// Score computes a user's score in a category. The overall category combines
// the three activity counters with configured weights; the rest rank a single
// counter.
func (s *Service) Score(user *models.User, category string) float64 {
	switch category {
	case models.RankingGoals:
		return float64(user.CompletedGoals)
	case models.RankingActions:
		return float64(user.CompletedActions)
	case models.RankingChallenges:
		return float64(user.CompletedChallenges)
	case models.RankingCO2:
		return user.TotalCO2Saved
	default:
		return float64(user.CompletedGoals*s.weights.Goal +
			user.CompletedActions*s.weights.Action +
			user.CompletedChallenges*s.weights.Challenge)
	}
}

// RecomputeAll rebuilds every ranking category. A failure in one category
// does not stop the others.
func (s *Service) RecomputeAll(ctx context.Context) error {
	users, err := s.userRepo.List()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var firstErr error
	for _, category := range models.RankingCategories() {
		if err := s.recomputeCategory(ctx, users, category); err != nil {
			s.log.Error().Err(err).Str("category", category).Msg("Failed to recompute ranking category")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// recomputeCategory scores and re-ranks one category. Ranks are assigned
// 1..N over a total order: score descending, completed goals descending,
// user id ascending. The tiebreak keeps repeated runs deterministic.
func (s *Service) recomputeCategory(ctx context.Context, users []models.User, category string) error {
	type scored struct {
		user  *models.User
		score float64
	}

	entries := make([]scored, 0, len(users))
	for i := range users {
		entries = append(entries, scored{user: &users[i], score: s.Score(&users[i], category)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].user.CompletedGoals != entries[j].user.CompletedGoals {
			return entries[i].user.CompletedGoals > entries[j].user.CompletedGoals
		}
		return entries[i].user.ID < entries[j].user.ID
	})

	now := s.now()
	var failed int
	for i, entry := range entries {
		rank := i + 1
		if err := s.saveRank(ctx, entry.user, category, entry.score, rank, now); err != nil {
			failed++
			s.log.Error().
				Err(err).
				Uint("user_id", entry.user.ID).
				Str("category", category).
				Msg("Failed to save ranking")
		}
	}

	prommetrics.SetRankedUsers(category, len(entries)-failed)
	s.log.Info().
		Str("category", category).
		Int("users", len(entries)).
		Int("failed", failed).
		Msg("Ranking category recomputed")

	if failed > 0 {
		return fmt.Errorf("%d of %d rankings failed in category %s", failed, len(entries), category)
	}
	return nil
}

// saveRank upserts one user's ranking record, classifying the movement
// against the previous snapshot.
func (s *Service) saveRank(ctx context.Context, user *models.User, category string, score float64, rank int, now time.Time) error {
	previous, err := s.rankingRepo.Get(user.ID, category)
	if err != nil {
		return fmt.Errorf("failed to load previous ranking: %w", err)
	}

	ranking := &models.Ranking{
		UserID:      user.ID,
		Category:    category,
		Score:       score,
		Rank:        rank,
		RankChange:  models.RankChangeNew,
		LastUpdated: now,
	}

	enteredTop := rank <= topRankThreshold
	if previous != nil {
		ranking.ID = previous.ID
		ranking.PreviousRank = previous.Rank
		switch {
		case rank < previous.Rank:
			ranking.RankChange = models.RankChangeUp
		case rank > previous.Rank:
			ranking.RankChange = models.RankChangeDown
		default:
			ranking.RankChange = models.RankChangeSame
		}
		enteredTop = enteredTop && previous.Rank > topRankThreshold
	}

	if err := s.rankingRepo.Save(ranking); err != nil {
		return err
	}

	if enteredTop {
		s.notifier.Notify(ctx, user.ID, notify.TypeRankAchievement, map[string]interface{}{
			"category": category,
			"rank":     rank,
		})
	}
	return nil
}

// Top returns the first n rankings of a category.
func (s *Service) Top(category string, n int) ([]models.Ranking, error) {
	rankings, err := s.rankingRepo.ListByCategory(category)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(rankings) > n {
		rankings = rankings[:n]
	}
	return rankings, nil
}
