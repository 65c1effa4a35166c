// Package gamification provides the REST API for challenges, actions,
// rewards, leaderboards, and user stats.
package gamification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/internal/service/leaderboard"
	"github.com/greenloop/greenloop-backend/internal/service/progress"
	"github.com/greenloop/greenloop-backend/internal/service/rewards"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// ProgressService interface for action and participation operations.
type ProgressService interface {
	ApplyAction(ctx context.Context, userID uint, actionType string, quantity, co2Saved float64) ([]progress.Update, error)
	ApplyToChallenge(ctx context.Context, userID, challengeID uint, actionType string, quantity, co2Saved float64) (*progress.Update, error)
	JoinChallenge(ctx context.Context, userID, challengeID uint) (*models.ChallengeParticipant, error)
	LeaveChallenge(ctx context.Context, userID, challengeID uint) error
}

// RewardService interface for reward operations.
type RewardService interface {
	AnnotatedCatalog(userID uint) ([]rewards.CatalogEntry, error)
	Redeem(ctx context.Context, userID, rewardID uint) (*models.RewardRedemption, error)
	ListRedemptions(userID uint) ([]models.RewardRedemption, error)
}

// LeaderboardService interface for leaderboard reads.
type LeaderboardService interface {
	Get(ctx context.Context, category string, page, pageSize int, currentUserID uint) (*leaderboard.Snapshot, error)
}

// ChallengeRepository interface for challenge CRUD.
type ChallengeRepository interface {
	Create(challenge *models.Challenge) error
	GetByID(id uint) (*models.Challenge, error)
	ListActive(now time.Time) ([]models.Challenge, error)
	ListAll() ([]models.Challenge, error)
	Deactivate(id uint) error
}

// UserRepository interface for user reads.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetBadges(userID uint) ([]models.UserBadge, error)
	GetTitles(userID uint) ([]models.UserTitle, error)
}

// ParticipationRepository interface for roster reads.
type ParticipationRepository interface {
	ListActiveByUser(userID uint, now time.Time) ([]models.ChallengeParticipant, error)
	ListCompletedByUser(userID uint) ([]models.ChallengeParticipant, error)
}

// Handler handles gamification API requests.
type Handler struct {
	progressService    ProgressService
	rewardService      RewardService
	leaderboardService LeaderboardService
	challengeRepo      ChallengeRepository
	userRepo           UserRepository
	participationRepo  ParticipationRepository
	log                *logger.Logger
}

// NewHandler creates a new gamification handler.
func NewHandler(
	progressService *progress.Service,
	rewardService *rewards.Service,
	leaderboardService *leaderboard.Service,
	challengeRepo *repository.ChallengeRepository,
	userRepo *repository.UserRepository,
	participationRepo *repository.ParticipationRepository,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(progressService, rewardService, leaderboardService, challengeRepo, userRepo, participationRepo, log)
}

// NewHandlerWithInterfaces creates a new gamification handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	progressService ProgressService,
	rewardService RewardService,
	leaderboardService LeaderboardService,
	challengeRepo ChallengeRepository,
	userRepo UserRepository,
	participationRepo ParticipationRepository,
	log *logger.Logger,
) *Handler {
	return &Handler{
		progressService:    progressService,
		rewardService:      rewardService,
		leaderboardService: leaderboardService,
		challengeRepo:      challengeRepo,
		userRepo:           userRepo,
		participationRepo:  participationRepo,
		log:                log,
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	v1.GET("/challenges", h.ListChallenges)
	v1.POST("/challenges", h.CreateChallenge)
	v1.GET("/challenges/:id", h.GetChallenge)
	v1.DELETE("/challenges/:id", h.DeactivateChallenge)
	v1.POST("/challenges/:id/join", h.JoinChallenge)
	v1.POST("/challenges/:id/leave", h.LeaveChallenge)
	v1.POST("/challenges/:id/actions", h.LogChallengeAction)

	v1.POST("/actions", h.LogAction)

	v1.GET("/rewards", h.GetRewardCatalog)
	v1.POST("/rewards/:id/redeem", h.RedeemReward)
	v1.GET("/users/:id/redemptions", h.GetUserRedemptions)

	v1.GET("/leaderboard/:category", h.GetLeaderboard)
	v1.GET("/users/:id/stats", h.GetUserStats)
}

// createChallengeRequest is the payload for user-created challenges. System
// challenges enter through catalog seeding, so a creator is always required
// here.
type createChallengeRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Category     string    `json:"category" binding:"required"`
	Difficulty   string    `json:"difficulty"`
	TargetValue  float64   `json:"target_value" binding:"required"`
	TargetUnit   string    `json:"target_unit" binding:"required"`
	RewardPoints int       `json:"reward_points"`
	RewardBadge  string    `json:"reward_badge"`
	RewardTitle  string    `json:"reward_title"`
	Recurrence   string    `json:"recurrence"`
	StartsAt     time.Time `json:"starts_at" binding:"required"`
	EndsAt       time.Time `json:"ends_at" binding:"required"`
	MinLevel     int       `json:"min_level"`
	CreatorID    *uint     `json:"creator_id" binding:"required"`
}

// CreateChallenge creates a new challenge.
// POST /api/v1/challenges.
func (h *Handler) CreateChallenge(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceOnce
	}

	challenge := &models.Challenge{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Difficulty:   req.Difficulty,
		TargetValue:  req.TargetValue,
		TargetUnit:   req.TargetUnit,
		RewardPoints: req.RewardPoints,
		RewardBadge:  req.RewardBadge,
		RewardTitle:  req.RewardTitle,
		Recurrence:   recurrence,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Active:       true,
		MinLevel:     req.MinLevel,
		CreatorType:  models.CreatorUser,
		CreatorID:    req.CreatorID,
	}

	if err := challenge.Validate(); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.challengeRepo.Create(challenge); err != nil {
		h.log.Error().Err(err).Str("title", req.Title).Msg("Failed to create challenge")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create challenge")
		return
	}

	h.log.Info().
		Uint("challenge_id", challenge.ID).
		Str("title", challenge.Title).
		Str("creator_type", challenge.CreatorType).
		Msg("Challenge created")

	c.JSON(http.StatusCreated, gin.H{"challenge": challenge})
}

// ListChallenges returns challenges, active-only by default.
// GET /api/v1/challenges?include_inactive=true.
func (h *Handler) ListChallenges(c *gin.Context) {
	var (
		challenges []models.Challenge
		err        error
	)
	if c.Query("include_inactive") == "true" {
		challenges, err = h.challengeRepo.ListAll()
	} else {
		challenges, err = h.challengeRepo.ListActive(time.Now())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list challenges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges":   challenges,
		"total":        len(challenges),
		"generated_at": time.Now().UTC(),
	})
}

// GetChallenge returns one challenge.
// GET /api/v1/challenges/:id.
func (h *Handler) GetChallenge(c *gin.Context) {
	challengeID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	challenge, err := h.challengeRepo.GetByID(challengeID)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Challenge not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}

// DeactivateChallenge removes a challenge from the active set. Participation
// history is preserved.
// DELETE /api/v1/challenges/:id.
func (h *Handler) DeactivateChallenge(c *gin.Context) {
	challengeID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.challengeRepo.GetByID(challengeID); err != nil {
		h.errorResponse(c, http.StatusNotFound, "Challenge not found")
		return
	}
	if err := h.challengeRepo.Deactivate(challengeID); err != nil {
		h.log.Error().Err(err).Uint("challenge_id", challengeID).Msg("Failed to deactivate challenge")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to deactivate challenge")
		return
	}

	h.log.Info().Uint("challenge_id", challengeID).Msg("Challenge deactivated")
	c.JSON(http.StatusOK, gin.H{"challenge_id": challengeID, "active": false})
}

// userRequest carries the acting user for join/leave/redeem calls.
type userRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// JoinChallenge adds a user to a challenge.
// POST /api/v1/challenges/:id/join.
func (h *Handler) JoinChallenge(c *gin.Context) {
	challengeID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := h.progressService.JoinChallenge(c.Request.Context(), req.UserID, challengeID)
	if err != nil {
		h.respondProgressError(c, err, req.UserID, challengeID)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"participation": participant})
}

// LeaveChallenge removes a user from a challenge.
// POST /api/v1/challenges/:id/leave.
func (h *Handler) LeaveChallenge(c *gin.Context) {
	challengeID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.progressService.LeaveChallenge(c.Request.Context(), req.UserID, challengeID); err != nil {
		h.respondProgressError(c, err, req.UserID, challengeID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge_id": challengeID, "user_id": req.UserID, "left": true})
}

// logActionRequest is the payload for logging an eco action.
type logActionRequest struct {
	UserID     uint    `json:"user_id" binding:"required"`
	ActionType string  `json:"action_type" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required"`
	CO2Saved   float64 `json:"co2_saved"`
}

// LogChallengeAction records an action routed at one specific challenge.
// POST /api/v1/challenges/:id/actions.
func (h *Handler) LogChallengeAction(c *gin.Context) {
	challengeID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req logActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	update, err := h.progressService.ApplyToChallenge(c.Request.Context(), req.UserID, challengeID, req.ActionType, req.Quantity, req.CO2Saved)
	if err != nil {
		h.respondProgressError(c, err, req.UserID, challengeID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"update":       update,
		"generated_at": time.Now().UTC(),
	})
}

// LogAction records an action and applies it to the user's challenges.
// POST /api/v1/actions.
func (h *Handler) LogAction(c *gin.Context) {
	var req logActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	updates, err := h.progressService.ApplyAction(c.Request.Context(), req.UserID, req.ActionType, req.Quantity, req.CO2Saved)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", req.UserID).Str("action_type", req.ActionType).Msg("Failed to apply action")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to process action")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updates":      updates,
		"generated_at": time.Now().UTC(),
	})
}

// GetRewardCatalog returns the reward catalog. With ?user_id= the entries are
// annotated with the user's eligibility.
// GET /api/v1/rewards?user_id=42.
func (h *Handler) GetRewardCatalog(c *gin.Context) {
	userID, err := h.parseOptionalUserQuery(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	catalog, err := h.rewardService.AnnotatedCatalog(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get reward catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve reward catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rewards":      catalog,
		"total":        len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// RedeemReward redeems a reward for the given user.
// POST /api/v1/rewards/:id/redeem.
func (h *Handler) RedeemReward(c *gin.Context) {
	rewardID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	redemption, err := h.rewardService.Redeem(c.Request.Context(), req.UserID, rewardID)
	if err != nil {
		h.respondRedeemError(c, err, req.UserID, rewardID)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"redemption": redemption})
}

// GetUserRedemptions returns a user's redemption ledger.
// GET /api/v1/users/:id/redemptions.
func (h *Handler) GetUserRedemptions(c *gin.Context) {
	userID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	redemptions, err := h.rewardService.ListRedemptions(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to list redemptions")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve redemptions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"redemptions": redemptions,
		"total":       len(redemptions),
	})
}

// GetLeaderboard returns one leaderboard page.
// GET /api/v1/leaderboard/:category?page=1&page_size=20&user_id=42.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	category := c.Param("category")

	page, err := h.parseIntQuery(c, "page", 1)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := h.parseIntQuery(c, "page_size", 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := h.parseOptionalUserQuery(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.leaderboardService.Get(c.Request.Context(), category, page, pageSize, userID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrUnknownCategory) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("category", category).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetUserStats returns a user's gamification profile.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "User not found")
		return
	}

	badges, err := h.userRepo.GetBadges(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user stats")
		return
	}
	titles, err := h.userRepo.GetTitles(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user titles")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user stats")
		return
	}

	active, err := h.participationRepo.ListActiveByUser(userID, time.Now())
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to list active participations")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user stats")
		return
	}
	completed, err := h.participationRepo.ListCompletedByUser(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to list completed participations")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":                 user,
		"badges":               badges,
		"titles":               titles,
		"active_challenges":    active,
		"completed_challenges": completed,
		"generated_at":         time.Now().UTC(),
	})
}

// Helper functions

func (h *Handler) parseIDParam(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

func (h *Handler) parseIntQuery(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s parameter: %s", name, raw)
	}
	return value, nil
}

func (h *Handler) parseOptionalUserQuery(c *gin.Context) (uint, error) {
	raw := c.Query("user_id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id parameter: %s", raw)
	}
	return uint(id), nil
}

// respondProgressError maps participation errors to HTTP statuses.
func (h *Handler) respondProgressError(c *gin.Context, err error, userID, challengeID uint) {
	switch {
	case errors.Is(err, progress.ErrNotParticipating):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, progress.ErrAlreadyParticipating):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, progress.ErrChallengeInactive):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, progress.ErrLevelTooLow):
		h.errorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, progress.ErrActionMismatch):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Uint("user_id", userID).Uint("challenge_id", challengeID).Msg("Participation request failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update participation")
	}
}

// respondRedeemError maps redemption errors to HTTP statuses.
func (h *Handler) respondRedeemError(c *gin.Context, err error, userID, rewardID uint) {
	switch {
	case errors.Is(err, rewards.ErrInsufficientPoints):
		h.errorResponse(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, rewards.ErrNotEligible):
		h.errorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, rewards.ErrAlreadyRedeemed), errors.Is(err, rewards.ErrCapacityExceeded):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, rewards.ErrRewardExpired):
		h.errorResponse(c, http.StatusGone, err.Error())
	default:
		h.log.Error().Err(err).Uint("user_id", userID).Uint("reward_id", rewardID).Msg("Redemption failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to redeem reward")
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
