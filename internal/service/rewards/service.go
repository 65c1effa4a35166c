// Package rewards implements the reward ledger: inline issuance on challenge
// completion and explicit catalog redemption.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	prommetrics "github.com/greenloop/greenloop-backend/internal/metrics"
	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/notify"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// Redemption precondition failures. All are surfaced to the caller without
// retry; none of them leaves the user's point balance changed.
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrRewardExpired      = errors.New("reward expired")
	ErrAlreadyRedeemed    = errors.New("reward already redeemed")
	ErrCapacityExceeded   = errors.New("reward capacity exceeded")
	ErrNotEligible        = errors.New("reward criteria not met")
)

// RewardRepository interface for catalog and ledger operations.
type RewardRepository interface {
	GetByID(id uint) (*models.Reward, error)
	GetAll() ([]models.Reward, error)
	HasRedeemed(userID, rewardID uint) (bool, error)
	ClaimCapacity(rewardID uint) (bool, error)
	ReleaseCapacity(rewardID uint) error
	CreateRedemption(redemption *models.RewardRedemption) error
	ListRedemptionsByUser(userID uint) ([]models.RewardRedemption, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
	AddBadge(userID uint, badge string, now time.Time) error
	AddTitle(userID uint, title string, now time.Time) error
}

// ActionRepository interface for action counts feeding eligibility.
type ActionRepository interface {
	CountByUser(userID uint) (int64, error)
}

// Spec is an inline reward attached to a challenge, applied on completion.
type Spec struct {
	Points int
	Badge  string
	Title  string
}

// Service handles reward issuance and redemption.
type Service struct {
	rewardRepo RewardRepository
	userRepo   UserRepository
	actionRepo ActionRepository
	notifier   notify.Notifier
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a new reward service with concrete repository types.
func NewService(
	rewardRepo *repository.RewardRepository,
	userRepo *repository.UserRepository,
	actionRepo *repository.ActionRepository,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(rewardRepo, userRepo, actionRepo, notifier, log)
}

// NewServiceWithInterfaces creates a new reward service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	rewardRepo RewardRepository,
	userRepo UserRepository,
	actionRepo ActionRepository,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		rewardRepo: rewardRepo,
		userRepo:   userRepo,
		actionRepo: actionRepo,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// Issue applies an inline reward's badge and title to a user. It is the path
// used by challenge completion: eligibility was already established by the
// completion itself, so issuance always succeeds. The point value of the
// reward is credited by the caller through the leveling subsystem.
func (s *Service) Issue(ctx context.Context, userID uint, spec Spec) {
	now := s.now()

	if spec.Badge != "" {
		if err := s.userRepo.AddBadge(userID, spec.Badge, now); err != nil {
			s.log.Error().Err(err).Uint("user_id", userID).Str("badge", spec.Badge).
				Msg("Failed to grant badge")
		} else {
			prommetrics.RecordRewardIssued(models.RewardTypeBadge)
		}
	}
	if spec.Title != "" {
		if err := s.userRepo.AddTitle(userID, spec.Title, now); err != nil {
			s.log.Error().Err(err).Uint("user_id", userID).Str("title", spec.Title).
				Msg("Failed to grant title")
		} else {
			prommetrics.RecordRewardIssued(models.RewardTypeTitle)
		}
	}
	if spec.Points > 0 {
		prommetrics.RecordRewardIssued(models.RewardTypePoints)
	}

	s.notifier.Notify(ctx, userID, notify.TypeRewardIssued, map[string]interface{}{
		"points": spec.Points,
		"badge":  spec.Badge,
		"title":  spec.Title,
	})
}

// Redeem exchanges a user's points for a catalog reward. The ordering is
// strict: validate, then debit, then award. No precondition failure may leave
// the balance changed.
func (s *Service) Redeem(ctx context.Context, userID, rewardID uint) (*models.RewardRedemption, error) {
	now := s.now()

	reward, err := s.rewardRepo.GetByID(rewardID)
	if err != nil {
		prommetrics.RecordRewardRedeemed("error")
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		prommetrics.RecordRewardRedeemed("error")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Validation phase.
	if reward.Expired(now) {
		prommetrics.RecordRewardRedeemed("expired")
		return nil, ErrRewardExpired
	}
	if !reward.Repeatable {
		redeemed, err := s.rewardRepo.HasRedeemed(userID, rewardID)
		if err != nil {
			prommetrics.RecordRewardRedeemed("error")
			return nil, fmt.Errorf("failed to check redemption history: %w", err)
		}
		if redeemed {
			prommetrics.RecordRewardRedeemed("already_redeemed")
			return nil, ErrAlreadyRedeemed
		}
	}
	if user.Points < reward.CostPoints {
		prommetrics.RecordRewardRedeemed("insufficient_points")
		return nil, ErrInsufficientPoints
	}
	eligible, err := s.Eligible(user, &reward.Criteria)
	if err != nil {
		prommetrics.RecordRewardRedeemed("error")
		return nil, err
	}
	if !eligible {
		prommetrics.RecordRewardRedeemed("not_eligible")
		return nil, ErrNotEligible
	}

	// Capacity is the last validation step and claims the slot atomically so
	// concurrent redemptions at the boundary cannot both pass.
	claimed, err := s.rewardRepo.ClaimCapacity(rewardID)
	if err != nil {
		prommetrics.RecordRewardRedeemed("error")
		return nil, fmt.Errorf("failed to claim reward capacity: %w", err)
	}
	if !claimed {
		prommetrics.RecordRewardRedeemed("capacity_exceeded")
		return nil, ErrCapacityExceeded
	}

	// Debit phase.
	user.Points -= reward.CostPoints
	if err := s.userRepo.Update(user); err != nil {
		s.releaseClaim(rewardID)
		prommetrics.RecordRewardRedeemed("error")
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}

	// Award phase.
	redemption := &models.RewardRedemption{
		RewardID:    rewardID,
		UserID:      userID,
		PointsSpent: reward.CostPoints,
		RedeemedAt:  now,
	}
	if err := s.rewardRepo.CreateRedemption(redemption); err != nil {
		// Refund so points are never lost without a reward granted.
		user.Points += reward.CostPoints
		if refundErr := s.userRepo.Update(user); refundErr != nil {
			s.log.Error().Err(refundErr).Uint("user_id", userID).
				Int("points", reward.CostPoints).
				Msg("Failed to refund points after ledger append failure")
		}
		s.releaseClaim(rewardID)
		prommetrics.RecordRewardRedeemed("error")
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	s.applyEffect(user, reward, now)

	prommetrics.RecordRewardRedeemed("success")
	s.log.Info().
		Uint("user_id", userID).
		Uint("reward_id", rewardID).
		Str("type", reward.Type).
		Int("points_spent", reward.CostPoints).
		Msg("Reward redeemed")

	s.notifier.Notify(ctx, userID, notify.TypeRewardRedeemed, map[string]interface{}{
		"reward_id": rewardID,
		"name":      reward.Name,
		"type":      reward.Type,
	})

	return redemption, nil
}

// applyEffect performs the type-specific mutation. Unknown types are opaque
// pass-through values with no further state change.
func (s *Service) applyEffect(user *models.User, reward *models.Reward, now time.Time) {
	switch reward.Type {
	case models.RewardTypeBadge:
		if err := s.userRepo.AddBadge(user.ID, reward.Value, now); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to grant redeemed badge")
		}
	case models.RewardTypeTitle:
		if err := s.userRepo.AddTitle(user.ID, reward.Value, now); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to grant redeemed title")
		}
	case models.RewardTypePoints:
		bonus, err := strconv.Atoi(reward.Value)
		if err != nil || bonus <= 0 {
			s.log.Error().Uint("reward_id", reward.ID).Str("value", reward.Value).
				Msg("Points reward has a non-numeric value")
			return
		}
		user.Points += bonus
		if err := s.userRepo.Update(user); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to credit bonus points")
		}
	}
}

func (s *Service) releaseClaim(rewardID uint) {
	if err := s.rewardRepo.ReleaseCapacity(rewardID); err != nil {
		s.log.Error().Err(err).Uint("reward_id", rewardID).
			Msg("Failed to release reward capacity claim")
	}
}

// ListRedemptions returns a user's redemption ledger.
func (s *Service) ListRedemptions(userID uint) ([]models.RewardRedemption, error) {
	return s.rewardRepo.ListRedemptionsByUser(userID)
}
