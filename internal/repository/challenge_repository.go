package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// ChallengeRepository handles challenge-related database operations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create creates a new challenge. The definition must already be validated.
func (r *ChallengeRepository) Create(challenge *models.Challenge) error {
	if err := r.db.Create(challenge).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// GetByID retrieves a challenge by its ID.
func (r *ChallengeRepository) GetByID(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.First(&challenge, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	return &challenge, nil
}

// GetByTitle retrieves a challenge by its title. Returns (nil, nil) when no
// challenge with the title exists.
func (r *ChallengeRepository) GetByTitle(title string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.Where("title = ?", title).First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// ListActive retrieves challenges accepting progress at the given time.
func (r *ChallengeRepository) ListActive(now time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("active = ? AND starts_at <= ? AND ends_at > ?", true, now, now).
		Order("ends_at ASC").
		Find(&challenges).Error
	return challenges, err
}

// ListAll retrieves every challenge.
func (r *ChallengeRepository) ListAll() ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.Order("created_at ASC").Find(&challenges).Error
	return challenges, err
}

// ListByRecurrence retrieves challenges of a recurrence class still flagged
// active, regardless of their time window.
func (r *ChallengeRepository) ListByRecurrence(recurrence string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("recurrence = ? AND active = ?", recurrence, true).
		Find(&challenges).Error
	return challenges, err
}

// Update updates an existing challenge.
func (r *ChallengeRepository) Update(challenge *models.Challenge) error {
	if err := r.db.Save(challenge).Error; err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return nil
}

// Deactivate flags a challenge inactive.
func (r *ChallengeRepository) Deactivate(id uint) error {
	return r.db.Model(&models.Challenge{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// Delete removes a challenge and cascades removal of its participant roster.
func (r *ChallengeRepository) Delete(id uint) error {
	if err := r.db.Where("challenge_id = ?", id).
		Delete(&models.ChallengeParticipant{}).Error; err != nil {
		return fmt.Errorf("failed to delete challenge roster: %w", err)
	}
	return r.db.Delete(&models.Challenge{}, id).Error
}

// IncrementCompletedCount bumps the cached completion counter.
func (r *ChallengeRepository) IncrementCompletedCount(id uint) error {
	return r.db.Model(&models.Challenge{}).
		Where("id = ?", id).
		UpdateColumn("completed_count", gorm.Expr("completed_count + 1")).Error
}

// RecountStats recomputes the cached participant counters from the roster and
// persists them. The roster is the source of truth; this heals any drift.
func (r *ChallengeRepository) RecountStats(id uint) (total, completed int64, err error) {
	if err = r.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ?", id).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND completed = ?", id, true).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&models.Challenge{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_participants": total,
			"completed_count":    completed,
		}).Error
	return total, completed, err
}
