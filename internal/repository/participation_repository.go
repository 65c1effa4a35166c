package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// ParticipationRepository handles the (challenge, user) participation table.
type ParticipationRepository struct {
	db *DB
}

// NewParticipationRepository creates a new participation repository.
func NewParticipationRepository(db *DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Join creates a participant record and bumps the cached roster counter.
// Returns gorm.ErrDuplicatedKey-compatible errors via the unique index when
// the user already participates.
func (r *ParticipationRepository) Join(challengeID, userID uint, now time.Time) (*models.ChallengeParticipant, error) {
	participant := &models.ChallengeParticipant{
		ChallengeID: challengeID,
		UserID:      userID,
		JoinedAt:    now,
	}
	if err := r.db.Create(participant).Error; err != nil {
		return nil, fmt.Errorf("failed to join challenge %d: %w", challengeID, err)
	}
	if err := r.db.Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		UpdateColumn("total_participants", gorm.Expr("total_participants + 1")).Error; err != nil {
		return nil, err
	}
	return participant, nil
}

// Get retrieves the participant record for a user on a challenge. Returns
// (nil, nil) when no record exists.
func (r *ParticipationRepository) Get(challengeID, userID uint) (*models.ChallengeParticipant, error) {
	var participant models.ChallengeParticipant
	err := r.db.
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// ListActiveByUser retrieves a user's participations on challenges that are
// still within their active window, with the challenge preloaded.
func (r *ParticipationRepository) ListActiveByUser(userID uint, now time.Time) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := r.db.
		Joins("JOIN challenges ON challenges.id = challenge_participants.challenge_id").
		Where("challenge_participants.user_id = ?", userID).
		Where("challenges.active = ? AND challenges.starts_at <= ? AND challenges.ends_at > ?", true, now, now).
		Preload("Challenge").
		Find(&participants).Error
	return participants, err
}

// ListByChallenge retrieves the full roster of a challenge.
func (r *ParticipationRepository) ListByChallenge(challengeID uint) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := r.db.
		Where("challenge_id = ?", challengeID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// ListCompletedByUser retrieves a user's completed participations.
func (r *ParticipationRepository) ListCompletedByUser(userID uint) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := r.db.
		Where("user_id = ? AND completed = ?", userID, true).
		Preload("Challenge").
		Order("completed_at DESC").
		Find(&participants).Error
	return participants, err
}

// Update persists a mutated participant record.
func (r *ParticipationRepository) Update(participant *models.ChallengeParticipant) error {
	if err := r.db.Save(participant).Error; err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

// ResetProgress zeroes progress and completion for every participant of a
// challenge. Roster membership and the challenge's historical completed_count
// are untouched.
func (r *ParticipationRepository) ResetProgress(challengeID uint) (int64, error) {
	res := r.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ?", challengeID).
		Updates(map[string]interface{}{
			"progress":     0,
			"completed":    false,
			"completed_at": nil,
		})
	return res.RowsAffected, res.Error
}

// Leave removes a user's participant record and decrements the cached counter.
func (r *ParticipationRepository) Leave(challengeID, userID uint) error {
	res := r.db.
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Delete(&models.ChallengeParticipant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.Model(&models.Challenge{}).
		Where("id = ? AND total_participants > 0", challengeID).
		UpdateColumn("total_participants", gorm.Expr("total_participants - 1")).Error
}
