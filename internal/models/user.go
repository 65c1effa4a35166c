package models

import (
	"time"
)

// User represents an app user with their embedded gamification state.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email    string `gorm:"size:255" json:"email"`

	// Gamification block.
	Experience int `gorm:"default:0" json:"experience"`
	Points     int `gorm:"default:0" json:"points"`
	Level      int `gorm:"default:1" json:"level"`

	// Streak of consecutive days with at least one logged action.
	CurrentStreak  int        `gorm:"default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"default:0" json:"longest_streak"`
	LastActionDate *time.Time `json:"last_action_date,omitempty"`

	// Lifetime counters feeding the sustainability score.
	CompletedGoals      int     `gorm:"default:0" json:"completed_goals"`
	CompletedActions    int     `gorm:"default:0" json:"completed_actions"`
	CompletedChallenges int     `gorm:"default:0" json:"completed_challenges"`
	TotalCO2Saved       float64 `gorm:"default:0" json:"total_co2_saved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`
	Titles []UserTitle `gorm:"foreignKey:UserID" json:"titles,omitempty"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserBadge represents a badge earned by a user.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	Badge    string    `gorm:"not null;size:100;uniqueIndex:idx_user_badge" json:"badge"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// UserTitle represents a title granted to a user.
type UserTitle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_title" json:"user_id"`
	Title     string    `gorm:"not null;size:100;uniqueIndex:idx_user_title" json:"title"`
	GrantedAt time.Time `gorm:"not null" json:"granted_at"`
}

// TableName specifies the table name for UserTitle model.
func (UserTitle) TableName() string {
	return "user_titles"
}

// ActionLog is one logged eco action. The action stream drives both challenge
// progress and the streak recomputation.
type ActionLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ActionType string    `gorm:"size:50;not null;index" json:"action_type"`
	Quantity   float64   `gorm:"not null" json:"quantity"`
	CO2Saved   float64   `gorm:"default:0" json:"co2_saved"`
	LoggedAt   time.Time `gorm:"not null;index" json:"logged_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for ActionLog model.
func (ActionLog) TableName() string {
	return "action_logs"
}
