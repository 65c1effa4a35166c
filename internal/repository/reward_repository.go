package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// RewardRepository handles reward catalog and redemption ledger operations.
type RewardRepository struct {
	db *DB
}

// NewRewardRepository creates a new reward repository.
func NewRewardRepository(db *DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// Create creates a new catalog reward.
func (r *RewardRepository) Create(reward *models.Reward) error {
	if err := r.db.Create(reward).Error; err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	return nil
}

// GetByID retrieves a reward by its ID.
func (r *RewardRepository) GetByID(id uint) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", id, err)
	}
	return &reward, nil
}

// GetByName retrieves a reward by its name. Returns (nil, nil) when no
// reward with the name exists.
func (r *RewardRepository) GetByName(name string) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.Where("name = ?", name).First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// GetAll retrieves the full reward catalog.
func (r *RewardRepository) GetAll() ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.Order("created_at ASC").Find(&rewards).Error
	return rewards, err
}

// Update updates a catalog reward.
func (r *RewardRepository) Update(reward *models.Reward) error {
	return r.db.Save(reward).Error
}

// HasRedeemed checks whether a user already redeemed a reward.
func (r *RewardRepository) HasRedeemed(userID, rewardID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.RewardRedemption{}).
		Where("user_id = ? AND reward_id = ?", userID, rewardID).
		Count(&count).Error
	return count > 0, err
}

// ClaimCapacity atomically increments the recipient counter, refusing the
// claim when the reward is capacity-bounded and full. Returns false when the
// capacity is exhausted.
func (r *RewardRepository) ClaimCapacity(rewardID uint) (bool, error) {
	res := r.db.Model(&models.Reward{}).
		Where("id = ?", rewardID).
		Where("max_recipients = 0 OR recipient_count < max_recipients").
		UpdateColumn("recipient_count", gorm.Expr("recipient_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseCapacity undoes a ClaimCapacity after a failed redemption.
func (r *RewardRepository) ReleaseCapacity(rewardID uint) error {
	return r.db.Model(&models.Reward{}).
		Where("id = ? AND recipient_count > 0", rewardID).
		UpdateColumn("recipient_count", gorm.Expr("recipient_count - 1")).Error
}

// CreateRedemption appends an entry to the redemption ledger.
func (r *RewardRepository) CreateRedemption(redemption *models.RewardRedemption) error {
	return r.db.Create(redemption).Error
}

// ListRedemptionsByUser retrieves a user's redemption ledger.
func (r *RewardRepository) ListRedemptionsByUser(userID uint) ([]models.RewardRedemption, error) {
	var redemptions []models.RewardRedemption
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Reward").
		Order("redeemed_at DESC").
		Find(&redemptions).Error
	return redemptions, err
}

// RecountRecipients recomputes the cached recipient counter from the ledger.
// The ledger is the source of truth; this heals any drift. Each redemption
// occupies one capacity slot, matching how ClaimCapacity counts.
func (r *RewardRepository) RecountRecipients(rewardID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.RewardRedemption{}).
		Where("reward_id = ?", rewardID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	err := r.db.Model(&models.Reward{}).
		Where("id = ?", rewardID).
		UpdateColumn("recipient_count", count).Error
	return count, err
}
