package models

import (
	"time"
)

// Reward types. Badge, points and title rewards mutate user state; any other
// type is an opaque value passed through to the caller (e.g. partner voucher
// codes).
const (
	RewardTypeBadge  = "badge"
	RewardTypePoints = "points"
	RewardTypeTitle  = "title"
)

// Reward rarities.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Reward is a catalog entry redeemable for points.
type Reward struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"size:50;not null" json:"type"`
	// Value is the type-specific payload: badge name, title text, a point
	// amount rendered as digits, or an opaque value for other types.
	Value  string `gorm:"size:255" json:"value"`
	Rarity string `gorm:"size:50;default:'common'" json:"rarity"`

	// CostPoints is debited from the user's balance on redemption.
	CostPoints int `gorm:"default:0" json:"cost_points"`

	// Criteria thresholds. Zero means the criterion is not required; a reward
	// is eligible only when every non-zero criterion is met.
	Criteria RewardCriteria `gorm:"embedded;embeddedPrefix:criteria_" json:"criteria"`

	// MaxRecipients caps how many distinct redemptions the reward allows.
	// Zero means unlimited.
	MaxRecipients int  `gorm:"default:0" json:"max_recipients"`
	Repeatable    bool `gorm:"default:false" json:"repeatable"`

	// RecipientCount is a cached counter, recomputable from the redemption
	// ledger.
	RecipientCount int `gorm:"default:0" json:"recipient_count"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Reward model.
func (Reward) TableName() string {
	return "rewards"
}

// RewardCriteria are the thresholds gating redemption.
type RewardCriteria struct {
	MinActions    int     `json:"min_actions"`
	MinCO2Saved   float64 `json:"min_co2_saved"`
	MinStreakDays int     `json:"min_streak_days"`
	MinLevel      int     `json:"min_level"`
}

// Expired reports whether the reward is past its expiry at the given time.
func (r *Reward) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// RewardRedemption is one entry in a user's redemption ledger.
type RewardRedemption struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RewardID    uint      `gorm:"not null;index" json:"reward_id"`
	Reward      Reward    `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PointsSpent int       `gorm:"default:0" json:"points_spent"`
	RedeemedAt  time.Time `gorm:"not null" json:"redeemed_at"`
}

// TableName specifies the table name for RewardRedemption model.
func (RewardRedemption) TableName() string {
	return "reward_redemptions"
}
