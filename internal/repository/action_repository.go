package repository

import (
	"fmt"
	"time"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// ActionRepository handles the logged action stream.
type ActionRepository struct {
	db *DB
}

// NewActionRepository creates a new action repository.
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create appends an action to the log.
func (r *ActionRepository) Create(action *models.ActionLog) error {
	if err := r.db.Create(action).Error; err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's actions, most recent first.
func (r *ActionRepository) ListByUser(userID uint, limit int) ([]models.ActionLog, error) {
	var actions []models.ActionLog
	q := r.db.
		Where("user_id = ?", userID).
		Order("logged_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&actions).Error
	return actions, err
}

// ActionDatesByUser returns the timestamps of every action a user has logged.
// The streak tracker collapses them onto calendar days.
func (r *ActionRepository) ActionDatesByUser(userID uint) ([]time.Time, error) {
	var timestamps []time.Time
	err := r.db.Model(&models.ActionLog{}).
		Where("user_id = ?", userID).
		Order("logged_at ASC").
		Pluck("logged_at", &timestamps).Error
	return timestamps, err
}

// CountByUser returns the total number of actions a user has logged.
func (r *ActionRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ActionLog{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
