package models

import (
	"time"
)

// Ranking categories. The overall category uses the composite sustainability
// score; the others rank a single counter.
const (
	RankingOverall    = "overall"
	RankingGoals      = "goals"
	RankingActions    = "actions"
	RankingChallenges = "challenges"
	RankingCO2        = "co2"
)

// RankChange classifies a user's rank movement between two snapshots.
const (
	RankChangeNew  = "new"
	RankChangeUp   = "up"
	RankChangeDown = "down"
	RankChangeSame = "same"
)

// Ranking is a user's position in one leaderboard category, keyed by
// (user_id, category). Ranks within a category form a dense permutation 1..N.
type Ranking struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_user_category;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category     string    `gorm:"size:50;not null;uniqueIndex:idx_user_category;index" json:"category"`
	Score        float64   `gorm:"default:0" json:"score"`
	Rank         int       `gorm:"default:0" json:"rank"`
	PreviousRank int       `gorm:"default:0" json:"previous_rank"`
	RankChange   string    `gorm:"size:10;default:'new'" json:"rank_change"`
	LastUpdated  time.Time `json:"last_updated"`
}

// TableName specifies the table name for Ranking model.
func (Ranking) TableName() string {
	return "rankings"
}

// RankingCategories lists every category the ranking sweep recomputes.
func RankingCategories() []string {
	return []string{RankingOverall, RankingGoals, RankingActions, RankingChallenges, RankingCO2}
}
