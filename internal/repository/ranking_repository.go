package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// RankingRepository handles leaderboard ranking records keyed by
// (user_id, category).
type RankingRepository struct {
	db *DB
}

// NewRankingRepository creates a new ranking repository.
func NewRankingRepository(db *DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// Get retrieves a user's ranking record for a category. Returns (nil, nil)
// when the user has never been ranked in that category.
func (r *RankingRepository) Get(userID uint, category string) (*models.Ranking, error) {
	var ranking models.Ranking
	err := r.db.
		Where("user_id = ? AND category = ?", userID, category).
		First(&ranking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ranking, nil
}

// ListByCategory retrieves a category's rankings ordered by rank ascending.
func (r *RankingRepository) ListByCategory(category string) ([]models.Ranking, error) {
	var rankings []models.Ranking
	err := r.db.
		Where("category = ?", category).
		Preload("User").
		Order("rank ASC").
		Find(&rankings).Error
	return rankings, err
}

// Save upserts a ranking record.
func (r *RankingRepository) Save(ranking *models.Ranking) error {
	return r.db.Save(ranking).Error
}

// CountByCategory returns the number of ranked users in a category.
func (r *RankingRepository) CountByCategory(category string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Ranking{}).
		Where("category = ?", category).
		Count(&count).Error
	return count, err
}
