// Package seed loads the system challenge and reward catalog from a YAML
// file at startup. Seeding is idempotent: entries that already exist by
// title or name are left untouched.
package seed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// ChallengeRepository interface for challenge seeding.
type ChallengeRepository interface {
	GetByTitle(title string) (*models.Challenge, error)
	Create(challenge *models.Challenge) error
}

// RewardRepository interface for reward seeding.
type RewardRepository interface {
	GetByName(name string) (*models.Reward, error)
	Create(reward *models.Reward) error
}

// Catalog is the on-disk seed file layout.
type Catalog struct {
	Challenges []ChallengeSeed `yaml:"challenges"`
	Rewards    []RewardSeed    `yaml:"rewards"`
}

// ChallengeSeed is one system challenge definition.
type ChallengeSeed struct {
	Title        string  `yaml:"title"`
	Description  string  `yaml:"description"`
	Category     string  `yaml:"category"`
	Difficulty   string  `yaml:"difficulty"`
	TargetValue  float64 `yaml:"target_value"`
	TargetUnit   string  `yaml:"target_unit"`
	RewardPoints int     `yaml:"reward_points"`
	RewardBadge  string  `yaml:"reward_badge"`
	RewardTitle  string  `yaml:"reward_title"`
	Recurrence   string  `yaml:"recurrence"`
	DurationDays int     `yaml:"duration_days"`
	MinLevel     int     `yaml:"min_level"`
}

// RewardSeed is one catalog reward definition.
type RewardSeed struct {
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Type          string  `yaml:"type"`
	Value         string  `yaml:"value"`
	Rarity        string  `yaml:"rarity"`
	CostPoints    int     `yaml:"cost_points"`
	MinActions    int     `yaml:"min_actions"`
	MinCO2Saved   float64 `yaml:"min_co2_saved"`
	MinStreakDays int     `yaml:"min_streak_days"`
	MinLevel      int     `yaml:"min_level"`
	MaxRecipients int     `yaml:"max_recipients"`
	Repeatable    bool    `yaml:"repeatable"`
	ExpiresInDays int     `yaml:"expires_in_days"`
}

// Seeder inserts missing catalog entries.
type Seeder struct {
	challengeRepo ChallengeRepository
	rewardRepo    RewardRepository
	log           *logger.Logger
	now           func() time.Time
}

// New creates a new seeder.
func New(challengeRepo *repository.ChallengeRepository, rewardRepo *repository.RewardRepository, log *logger.Logger) *Seeder {
	return NewWithInterfaces(challengeRepo, rewardRepo, log)
}

// NewWithInterfaces creates a new seeder with interface dependencies (useful for testing).
func NewWithInterfaces(challengeRepo ChallengeRepository, rewardRepo RewardRepository, log *logger.Logger) *Seeder {
	return &Seeder{
		challengeRepo: challengeRepo,
		rewardRepo:    rewardRepo,
		log:           log,
		now:           time.Now,
	}
}

// Run loads the catalog file and inserts every missing entry.
func (s *Seeder) Run(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s.Apply(&catalog)
}

// Apply inserts the catalog's missing entries.
func (s *Seeder) Apply(catalog *Catalog) error {
	var createdChallenges, createdRewards int

	for _, def := range catalog.Challenges {
		existing, err := s.challengeRepo.GetByTitle(def.Title)
		if err != nil {
			return fmt.Errorf("failed to check challenge %q: %w", def.Title, err)
		}
		if existing != nil {
			continue
		}

		challenge := s.buildChallenge(&def)
		if err := challenge.Validate(); err != nil {
			return fmt.Errorf("invalid seed challenge %q: %w", def.Title, err)
		}
		if err := s.challengeRepo.Create(challenge); err != nil {
			return fmt.Errorf("failed to create challenge %q: %w", def.Title, err)
		}
		createdChallenges++
	}

	for _, def := range catalog.Rewards {
		existing, err := s.rewardRepo.GetByName(def.Name)
		if err != nil {
			return fmt.Errorf("failed to check reward %q: %w", def.Name, err)
		}
		if existing != nil {
			continue
		}

		if err := s.rewardRepo.Create(s.buildReward(&def)); err != nil {
			return fmt.Errorf("failed to create reward %q: %w", def.Name, err)
		}
		createdRewards++
	}

	s.log.Info().
		Int("challenges_created", createdChallenges).
		Int("rewards_created", createdRewards).
		Int("challenges_total", len(catalog.Challenges)).
		Int("rewards_total", len(catalog.Rewards)).
		Msg("Seed catalog applied")
	return nil
}

func (s *Seeder) buildChallenge(def *ChallengeSeed) *models.Challenge {
	now := s.now()
	duration := def.DurationDays
	if duration <= 0 {
		duration = 30
	}
	recurrence := def.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceOnce
	}
	return &models.Challenge{
		Title:        def.Title,
		Description:  def.Description,
		Category:     def.Category,
		Difficulty:   def.Difficulty,
		TargetValue:  def.TargetValue,
		TargetUnit:   def.TargetUnit,
		RewardPoints: def.RewardPoints,
		RewardBadge:  def.RewardBadge,
		RewardTitle:  def.RewardTitle,
		Recurrence:   recurrence,
		StartsAt:     now,
		EndsAt:       now.AddDate(0, 0, duration),
		Active:       true,
		MinLevel:     def.MinLevel,
		CreatorType:  models.CreatorSystem,
	}
}

func (s *Seeder) buildReward(def *RewardSeed) *models.Reward {
	reward := &models.Reward{
		Name:          def.Name,
		Description:   def.Description,
		Type:          def.Type,
		Value:         def.Value,
		Rarity:        def.Rarity,
		CostPoints:    def.CostPoints,
		MaxRecipients: def.MaxRecipients,
		Repeatable:    def.Repeatable,
		Criteria: models.RewardCriteria{
			MinActions:    def.MinActions,
			MinCO2Saved:   def.MinCO2Saved,
			MinStreakDays: def.MinStreakDays,
			MinLevel:      def.MinLevel,
		},
	}
	if def.ExpiresInDays > 0 {
		expires := s.now().AddDate(0, 0, def.ExpiresInDays)
		reward.ExpiresAt = &expires
	}
	return reward
}
