// Package leveling maps accumulated experience to a monotonic user level.
package leveling

import (
	"math"

	prommetrics "github.com/greenloop/greenloop-backend/internal/metrics"
	"github.com/greenloop/greenloop-backend/internal/models"
)

// LevelForExperience returns the level for an experience total:
// floor(sqrt(experience/100)) + 1. Level 1 at 0 XP, level 3 at 400 XP.
func LevelForExperience(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return int(math.Floor(math.Sqrt(float64(experience)/100))) + 1
}

// ExperienceForLevel returns the minimum experience required for a level.
func ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * 100
}

// AddExperience credits points to a user's experience and point balance and
// recalculates the level. Returns true when the user leveled up. The level
// never decreases. The caller owns persistence and any level-up notification.
func AddExperience(user *models.User, points int) (leveledUp bool) {
	if points <= 0 {
		return false
	}
	user.Experience += points
	user.Points += points

	newLevel := LevelForExperience(user.Experience)
	if newLevel > user.Level {
		user.Level = newLevel
		prommetrics.RecordLevelUp()
		return true
	}
	return false
}
