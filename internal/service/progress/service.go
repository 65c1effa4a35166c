// Package progress implements the challenge progress engine. It applies
// logged actions to matching active challenge participations, detects
// completion, and triggers reward issuance and leveling.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	prommetrics "github.com/greenloop/greenloop-backend/internal/metrics"
	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/notify"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/internal/service/leveling"
	"github.com/greenloop/greenloop-backend/internal/service/rewards"
	"github.com/greenloop/greenloop-backend/internal/service/streak"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// Precondition failures surfaced to the caller.
var (
	ErrNotParticipating     = errors.New("user is not participating in challenge")
	ErrAlreadyParticipating = errors.New("user already participates in challenge")
	ErrChallengeInactive    = errors.New("challenge is not active")
	ErrLevelTooLow          = errors.New("user level below challenge requirement")
	ErrActionMismatch       = errors.New("action type does not match challenge category")
)

// ChallengeRepository interface for challenge operations.
type ChallengeRepository interface {
	GetByID(id uint) (*models.Challenge, error)
	IncrementCompletedCount(id uint) error
}

// ParticipationRepository interface for roster operations.
type ParticipationRepository interface {
	Join(challengeID, userID uint, now time.Time) (*models.ChallengeParticipant, error)
	Get(challengeID, userID uint) (*models.ChallengeParticipant, error)
	ListActiveByUser(userID uint, now time.Time) ([]models.ChallengeParticipant, error)
	Update(participant *models.ChallengeParticipant) error
	Leave(challengeID, userID uint) error
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
}

// ActionRepository interface for the logged action stream.
type ActionRepository interface {
	Create(action *models.ActionLog) error
	ActionDatesByUser(userID uint) ([]time.Time, error)
}

// RewardIssuer is the inline issuance path of the reward ledger.
type RewardIssuer interface {
	Issue(ctx context.Context, userID uint, spec rewards.Spec)
}

// Update reports the effect of one action on one challenge, exposed to the
// calling layer.
type Update struct {
	ChallengeID  uint    `json:"challenge_id"`
	Title        string  `json:"title"`
	Progress     float64 `json:"progress"`
	Target       float64 `json:"target"`
	Completed    bool    `json:"completed"`
	RewardPoints int     `json:"reward_points,omitempty"`
	RewardBadge  string  `json:"reward_badge,omitempty"`
	LeveledUp    bool    `json:"leveled_up,omitempty"`
}

// Service is the progress engine.
type Service struct {
	challengeRepo     ChallengeRepository
	participationRepo ParticipationRepository
	userRepo          UserRepository
	actionRepo        ActionRepository
	rewardIssuer      RewardIssuer
	notifier          notify.Notifier
	log               *logger.Logger
	now               func() time.Time
}

// NewService creates a new progress service with concrete repository types.
func NewService(
	challengeRepo *repository.ChallengeRepository,
	participationRepo *repository.ParticipationRepository,
	userRepo *repository.UserRepository,
	actionRepo *repository.ActionRepository,
	rewardIssuer RewardIssuer,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(challengeRepo, participationRepo, userRepo, actionRepo, rewardIssuer, notifier, log)
}

// NewServiceWithInterfaces creates a new progress service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	challengeRepo ChallengeRepository,
	participationRepo ParticipationRepository,
	userRepo UserRepository,
	actionRepo ActionRepository,
	rewardIssuer RewardIssuer,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		challengeRepo:     challengeRepo,
		participationRepo: participationRepo,
		userRepo:          userRepo,
		actionRepo:        actionRepo,
		rewardIssuer:      rewardIssuer,
		notifier:          notifier,
		log:               log,
		now:               time.Now,
	}
}

// ApplyAction logs an action and applies it to every active challenge the
// user participates in whose category matches the action type. Each matching
// participation receives exactly one increment per call. A failure on one
// challenge is isolated and logged; the remaining challenges still progress.
func (s *Service) ApplyAction(ctx context.Context, userID uint, actionType string, quantity, co2Saved float64) ([]Update, error) {
	if quantity <= 0 {
		prommetrics.RecordActionProcessed(actionType, "invalid")
		return nil, fmt.Errorf("action quantity must be positive, got %v", quantity)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.now()
	if err := s.actionRepo.Create(&models.ActionLog{
		UserID:     userID,
		ActionType: actionType,
		Quantity:   quantity,
		CO2Saved:   co2Saved,
		LoggedAt:   now,
	}); err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	participations, err := s.participationRepo.ListActiveByUser(userID, now)
	if err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	updates := make([]Update, 0, len(participations))
	for i := range participations {
		p := &participations[i]
		if p.Completed || !p.Challenge.Matches(actionType) {
			continue
		}
		update, err := s.advance(ctx, user, p, quantity, now)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Uint("challenge_id", p.ChallengeID).
				Msg("Failed to advance challenge progress")
			continue
		}
		updates = append(updates, update)
	}

	user.CompletedActions++
	user.TotalCO2Saved += co2Saved
	s.refreshStreak(user, now)

	if err := s.userRepo.Update(user); err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return updates, fmt.Errorf("failed to update user: %w", err)
	}

	prommetrics.RecordActionProcessed(actionType, "success")
	return updates, nil
}

// ApplyToChallenge logs an action routed at one specific challenge instead of
// fanning out. The action type must match the challenge category. A completed
// participation is left untouched and its current state returned; the action
// itself still logs and counts toward the user's streak and totals.
func (s *Service) ApplyToChallenge(ctx context.Context, userID, challengeID uint, actionType string, quantity, co2Saved float64) (*Update, error) {
	if quantity <= 0 {
		prommetrics.RecordActionProcessed(actionType, "invalid")
		return nil, fmt.Errorf("action quantity must be positive, got %v", quantity)
	}

	now := s.now()

	challenge, err := s.challengeRepo.GetByID(challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if !challenge.ActiveNow(now) {
		return nil, ErrChallengeInactive
	}
	if !challenge.Matches(actionType) {
		return nil, ErrActionMismatch
	}

	participant, err := s.participationRepo.Get(challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	if participant == nil {
		return nil, ErrNotParticipating
	}
	participant.Challenge = *challenge

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.actionRepo.Create(&models.ActionLog{
		UserID:     userID,
		ActionType: actionType,
		Quantity:   quantity,
		CO2Saved:   co2Saved,
		LoggedAt:   now,
	}); err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	update := Update{
		ChallengeID: challenge.ID,
		Title:       challenge.Title,
		Progress:    participant.Progress,
		Target:      challenge.TargetValue,
		Completed:   participant.Completed,
	}
	// Progress never moves past the target once completion flips.
	if !participant.Completed {
		update, err = s.advance(ctx, user, participant, quantity, now)
		if err != nil {
			prommetrics.RecordActionProcessed(actionType, "error")
			return nil, err
		}
	}

	user.CompletedActions++
	user.TotalCO2Saved += co2Saved
	s.refreshStreak(user, now)

	if err := s.userRepo.Update(user); err != nil {
		prommetrics.RecordActionProcessed(actionType, "error")
		return &update, fmt.Errorf("failed to update user: %w", err)
	}

	prommetrics.RecordActionProcessed(actionType, "success")
	return &update, nil
}

// advance adds one increment to a participation and finalizes it when the
// target is reached. Completion flips false to true exactly once and is never
// reversed here.
func (s *Service) advance(ctx context.Context, user *models.User, p *models.ChallengeParticipant, quantity float64, now time.Time) (Update, error) {
	challenge := &p.Challenge

	increment := quantity
	if challenge.CountsWholeActions() {
		increment = 1
	}
	p.Progress += increment

	completedNow := false
	if p.Progress >= challenge.TargetValue && !p.Completed {
		p.Progress = challenge.TargetValue
		p.Completed = true
		completedAt := now
		p.CompletedAt = &completedAt
		completedNow = true
	}

	if err := s.participationRepo.Update(p); err != nil {
		return Update{}, fmt.Errorf("failed to persist progress: %w", err)
	}

	update := Update{
		ChallengeID: challenge.ID,
		Title:       challenge.Title,
		Progress:    p.Progress,
		Target:      challenge.TargetValue,
		Completed:   p.Completed,
	}

	if completedNow {
		update.RewardPoints = challenge.RewardPoints
		update.RewardBadge = challenge.RewardBadge
		update.LeveledUp = s.finalizeCompletion(ctx, user, challenge, now)
	}
	return update, nil
}

// finalizeCompletion runs the completion side effects: cached stats, inline
// reward, experience, counters and notifications. No challenge is marked
// complete without its reward invocation.
func (s *Service) finalizeCompletion(ctx context.Context, user *models.User, challenge *models.Challenge, now time.Time) (leveledUp bool) {
	if err := s.challengeRepo.IncrementCompletedCount(challenge.ID); err != nil {
		// The counter is a cache over the roster; drift heals on the next
		// recount.
		s.log.Warn().
			Err(err).
			Uint("challenge_id", challenge.ID).
			Msg("Failed to bump completed count")
	}

	s.rewardIssuer.Issue(ctx, user.ID, rewards.Spec{
		Points: challenge.RewardPoints,
		Badge:  challenge.RewardBadge,
		Title:  challenge.RewardTitle,
	})

	leveledUp = leveling.AddExperience(user, challenge.RewardPoints)
	user.CompletedChallenges++

	prommetrics.RecordChallengeCompleted(challenge.Category, challenge.Difficulty)
	s.log.Info().
		Uint("user_id", user.ID).
		Uint("challenge_id", challenge.ID).
		Str("title", challenge.Title).
		Int("reward_points", challenge.RewardPoints).
		Bool("leveled_up", leveledUp).
		Msg("Challenge completed")

	s.notifier.Notify(ctx, user.ID, notify.TypeChallengeCompleted, map[string]interface{}{
		"challenge_id": challenge.ID,
		"title":        challenge.Title,
		"points":       challenge.RewardPoints,
	})
	if leveledUp {
		s.notifier.Notify(ctx, user.ID, notify.TypeLevelUp, map[string]interface{}{
			"level": user.Level,
		})
	}
	return leveledUp
}

// refreshStreak recomputes the user's streak from the full action history.
func (s *Service) refreshStreak(user *models.User, now time.Time) {
	dates, err := s.actionRepo.ActionDatesByUser(user.ID)
	if err != nil {
		// Streak drift self-heals on the next recompute.
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to load action dates for streak")
		return
	}
	result := streak.Compute(dates, now)
	user.CurrentStreak = result.Current
	if result.Longest > user.LongestStreak {
		user.LongestStreak = result.Longest
	}
	user.LastActionDate = &now
}

// JoinChallenge adds a user to a challenge roster.
func (s *Service) JoinChallenge(ctx context.Context, userID, challengeID uint) (*models.ChallengeParticipant, error) {
	now := s.now()

	challenge, err := s.challengeRepo.GetByID(challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if !challenge.ActiveNow(now) {
		return nil, ErrChallengeInactive
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Level < challenge.MinLevel {
		return nil, ErrLevelTooLow
	}

	existing, err := s.participationRepo.Get(challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyParticipating
	}

	participant, err := s.participationRepo.Join(challengeID, userID, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", challengeID).
		Msg("User joined challenge")
	return participant, nil
}

// LeaveChallenge removes a user from a challenge roster.
func (s *Service) LeaveChallenge(ctx context.Context, userID, challengeID uint) error {
	participant, err := s.participationRepo.Get(challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to check participation: %w", err)
	}
	if participant == nil {
		return ErrNotParticipating
	}
	return s.participationRepo.Leave(challengeID, userID)
}
