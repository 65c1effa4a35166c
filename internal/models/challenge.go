// Package models defines domain models for the GreenLoop gamification engine.
package models

import (
	"errors"
	"time"
)

// Challenge categories. A challenge in the general category matches actions
// of any type.
const (
	CategoryTransport = "transport"
	CategoryEnergy    = "energy"
	CategoryWaste     = "waste"
	CategoryWater     = "water"
	CategoryFood      = "food"
	CategoryGeneral   = "general"
)

// Target units. Physical units pass the logged quantity through; count units
// increment progress by one per action.
const (
	UnitKilometers = "km"
	UnitKilograms  = "kg"
	UnitLiters     = "liters"
	UnitMinutes    = "minutes"
	UnitTimes      = "times"
	UnitActions    = "actions"
)

// Recurrence classes.
const (
	RecurrenceOnce   = "once"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

// Creator types.
const (
	CreatorSystem = "system"
	CreatorUser   = "user"
)

// Validation errors returned when a challenge definition is rejected at
// creation time.
var (
	ErrMissingTarget     = errors.New("challenge target value must be positive")
	ErrMissingTitle      = errors.New("challenge title is required")
	ErrInvalidTimeWindow = errors.New("challenge end must be after start")
	ErrInvalidUnit       = errors.New("unknown target unit")
)

// Challenge represents a time-boxed goal users can join and progress toward.
type Challenge struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"not null;size:200" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Category    string  `gorm:"size:50;index;not null" json:"category"`
	Difficulty  string  `gorm:"size:50" json:"difficulty"`
	TargetValue float64 `gorm:"not null" json:"target_value"`
	TargetUnit  string  `gorm:"size:50;not null" json:"target_unit"`

	// Inline reward applied on completion.
	RewardPoints int    `gorm:"default:0" json:"reward_points"`
	RewardBadge  string `gorm:"size:100" json:"reward_badge,omitempty"`
	RewardTitle  string `gorm:"size:100" json:"reward_title,omitempty"`

	Recurrence string    `gorm:"size:20;default:'once'" json:"recurrence"`
	StartsAt   time.Time `gorm:"not null" json:"starts_at"`
	EndsAt     time.Time `gorm:"not null;index" json:"ends_at"`
	Active     bool      `gorm:"default:true;index" json:"active"`
	MinLevel   int       `gorm:"default:0" json:"min_level"`

	// Creator is a tagged variant: system-seeded challenges have no creator id.
	CreatorType string `gorm:"size:20;not null;default:'system'" json:"creator_type"`
	CreatorID   *uint  `gorm:"index" json:"creator_id,omitempty"`
	Creator     *User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	// Cached aggregates. The participant roster is the source of truth; both
	// values are recomputable from it at any time.
	TotalParticipants int `gorm:"default:0" json:"total_participants"`
	CompletedCount    int `gorm:"default:0" json:"completed_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// Validate checks a challenge definition at creation time.
func (c *Challenge) Validate() error {
	if c.Title == "" {
		return ErrMissingTitle
	}
	if c.TargetValue <= 0 {
		return ErrMissingTarget
	}
	switch c.TargetUnit {
	case UnitKilometers, UnitKilograms, UnitLiters, UnitMinutes, UnitTimes, UnitActions:
	default:
		return ErrInvalidUnit
	}
	if !c.EndsAt.After(c.StartsAt) {
		return ErrInvalidTimeWindow
	}
	return nil
}

// ActiveNow reports whether the challenge accepts progress at the given time.
// This is the single canonical active predicate.
func (c *Challenge) ActiveNow(now time.Time) bool {
	return c.Active && !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

// Matches reports whether an action of the given type counts toward this
// challenge.
func (c *Challenge) Matches(actionType string) bool {
	return c.Category == CategoryGeneral || c.Category == actionType
}

// CountsWholeActions reports whether the target unit counts actions rather
// than a physical quantity.
func (c *Challenge) CountsWholeActions() bool {
	return c.TargetUnit == UnitTimes || c.TargetUnit == UnitActions
}

// ChallengeParticipant is a user's membership and progress record within one
// challenge, keyed by (challenge_id, user_id).
type ChallengeParticipant struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ChallengeID uint       `gorm:"not null;uniqueIndex:idx_challenge_user;index" json:"challenge_id"`
	Challenge   Challenge  `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_challenge_user;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Progress    float64    `gorm:"default:0" json:"progress"`
	Completed   bool       `gorm:"default:false;index" json:"completed"`
	JoinedAt    time.Time  `gorm:"not null" json:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for ChallengeParticipant model.
func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}
