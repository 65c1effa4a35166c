package rewards

import (
	"fmt"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// CatalogEntry is a reward annotated for one user.
type CatalogEntry struct {
	Reward     models.Reward `json:"reward"`
	Eligible   bool          `json:"eligible"`
	Affordable bool          `json:"affordable"`
	Redeemed   bool          `json:"redeemed"`
}

// Eligible evaluates a reward's criteria against a user's current state.
// Every non-zero criterion must be met; there is no partial credit.
func (s *Service) Eligible(user *models.User, criteria *models.RewardCriteria) (bool, error) {
	if criteria.MinActions > 0 {
		count, err := s.actionRepo.CountByUser(user.ID)
		if err != nil {
			return false, fmt.Errorf("failed to count user actions: %w", err)
		}
		if count < int64(criteria.MinActions) {
			return false, nil
		}
	}
	if criteria.MinCO2Saved > 0 && user.TotalCO2Saved < criteria.MinCO2Saved {
		return false, nil
	}
	if criteria.MinStreakDays > 0 && user.CurrentStreak < criteria.MinStreakDays {
		return false, nil
	}
	if criteria.MinLevel > 0 && user.Level < criteria.MinLevel {
		return false, nil
	}
	return true, nil
}

// AnnotatedCatalog returns the reward catalog annotated per-user with
// eligibility and affordability flags for the calling layer.
func (s *Service) AnnotatedCatalog(userID uint) ([]CatalogEntry, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	catalog, err := s.rewardRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load reward catalog: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(catalog))
	for _, reward := range catalog {
		eligible, err := s.Eligible(user, &reward.Criteria)
		if err != nil {
			return nil, err
		}
		redeemed, err := s.rewardRepo.HasRedeemed(userID, reward.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{
			Reward:     reward,
			Eligible:   eligible,
			Affordable: user.Points >= reward.CostPoints,
			Redeemed:   redeemed,
		})
	}
	return entries, nil
}
