// Package leaderboard serves paginated ranking snapshots with a Redis
// cache-aside layer in front of the ranking store.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greenloop/greenloop-backend/internal/cache"
	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

const (
	keyPrefix       = "leaderboard:"
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrUnknownCategory is returned for a category outside the ranked set.
var ErrUnknownCategory = errors.New("unknown leaderboard category")

// RankingRepository interface for ranking reads.
type RankingRepository interface {
	ListByCategory(category string) ([]models.Ranking, error)
	Get(userID uint, category string) (*models.Ranking, error)
}

// Cache interface for the snapshot cache.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Entry is one leaderboard row.
type Entry struct {
	UserID       uint    `json:"user_id"`
	Username     string  `json:"username"`
	Level        int     `json:"level"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	PreviousRank int     `json:"previous_rank"`
	RankChange   string  `json:"rank_change"`
}

// Snapshot is one leaderboard page plus the requesting user's own position,
// which is included even when it falls outside the page.
type Snapshot struct {
	Category    string    `json:"category"`
	Entries     []Entry   `json:"entries"`
	Total       int       `json:"total"`
	Page        int       `json:"page"`
	PageSize    int       `json:"page_size"`
	GeneratedAt time.Time `json:"generated_at"`
	CurrentUser *Entry    `json:"current_user,omitempty"`
}

// Service serves leaderboard snapshots.
type Service struct {
	rankingRepo RankingRepository
	cache       Cache
	ttl         time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new leaderboard service with concrete types.
func NewService(rankingRepo *repository.RankingRepository, c *cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(rankingRepo, c, ttl, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(rankingRepo RankingRepository, c Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		rankingRepo: rankingRepo,
		cache:       c,
		ttl:         ttl,
		log:         log,
		now:         time.Now,
	}
}

// Get returns one page of a category's leaderboard. Pages are cached; the
// requesting user's own entry is resolved per request and never cached.
func (s *Service) Get(ctx context.Context, category string, page, pageSize int, currentUserID uint) (*Snapshot, error) {
	if !validCategory(category) {
		return nil, ErrUnknownCategory
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	snapshot, err := s.page(ctx, category, page, pageSize)
	if err != nil {
		return nil, err
	}

	if currentUserID != 0 {
		own, err := s.rankingRepo.Get(currentUserID, category)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", currentUserID).Msg("Failed to load own ranking")
		} else if own != nil {
			entry := toEntry(own)
			snapshot.CurrentUser = &entry
		}
	}
	return snapshot, nil
}

func (s *Service) page(ctx context.Context, category string, page, pageSize int) (*Snapshot, error) {
	key := fmt.Sprintf("%s%s:%d:%d", keyPrefix, category, page, pageSize)

	var cached Snapshot
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// A broken cache degrades to direct reads.
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
	}

	rankings, err := s.rankingRepo.ListByCategory(category)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings: %w", err)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(rankings) {
		start = len(rankings)
	}
	if end > len(rankings) {
		end = len(rankings)
	}

	entries := make([]Entry, 0, end-start)
	for _, r := range rankings[start:end] {
		entries = append(entries, toEntry(&r))
	}

	snapshot := &Snapshot{
		Category:    category,
		Entries:     entries,
		Total:       len(rankings),
		Page:        page,
		PageSize:    pageSize,
		GeneratedAt: s.now(),
	}

	if err := s.cache.Set(ctx, key, snapshot, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
	return snapshot, nil
}

// Invalidate drops every cached leaderboard page. Called after a ranking
// sweep so readers see fresh positions before the TTL elapses.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPrefix(ctx, keyPrefix); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}

func toEntry(r *models.Ranking) Entry {
	return Entry{
		UserID:       r.UserID,
		Username:     r.User.Username,
		Level:        r.User.Level,
		Score:        r.Score,
		Rank:         r.Rank,
		PreviousRank: r.PreviousRank,
		RankChange:   r.RankChange,
	}
}

func validCategory(category string) bool {
	for _, c := range models.RankingCategories() {
		if c == category {
			return true
		}
	}
	return false
}
