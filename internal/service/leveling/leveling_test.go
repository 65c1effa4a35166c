package leveling

import (
	"testing"

	"github.com/greenloop/greenloop-backend/internal/models"
)

func TestLevelForExperience(t *testing.T) {
	tests := []struct {
		name       string
		experience int
		want       int
	}{
		{"zero experience", 0, 1},
		{"below first threshold", 99, 1},
		{"first threshold", 100, 2},
		{"mid second level", 250, 2},
		{"400 xp reaches level 3", 400, 3},
		{"899 xp still level 3", 899, 3},
		{"900 xp reaches level 4", 900, 4},
		{"negative clamps to level 1", -50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelForExperience(tt.experience); got != tt.want {
				t.Errorf("LevelForExperience(%d) = %d, want %d", tt.experience, got, tt.want)
			}
		})
	}
}

func TestExperienceForLevel(t *testing.T) {
	for level := 1; level <= 10; level++ {
		minXP := ExperienceForLevel(level)
		if got := LevelForExperience(minXP); got != level {
			t.Errorf("LevelForExperience(ExperienceForLevel(%d)=%d) = %d", level, minXP, got)
		}
		if minXP > 0 {
			if got := LevelForExperience(minXP - 1); got != level-1 {
				t.Errorf("one XP below level %d threshold gives level %d", level, got)
			}
		}
	}
}

func TestAddExperience(t *testing.T) {
	user := &models.User{Level: 1}

	leveledUp := AddExperience(user, 400)
	if !leveledUp {
		t.Error("expected level-up from 0 to 400 xp")
	}
	if user.Level != 3 {
		t.Errorf("level = %d, want 3", user.Level)
	}
	if user.Experience != 400 {
		t.Errorf("experience = %d, want 400", user.Experience)
	}
	if user.Points != 400 {
		t.Errorf("points = %d, want 400", user.Points)
	}

	// Small award within the same level.
	leveledUp = AddExperience(user, 10)
	if leveledUp {
		t.Error("did not expect a level-up from 400 to 410 xp")
	}
	if user.Level != 3 {
		t.Errorf("level = %d, want 3", user.Level)
	}
}

func TestAddExperienceLevelInvariant(t *testing.T) {
	user := &models.User{Level: 1}
	awards := []int{50, 50, 120, 300, 5, 1000, 77}

	for _, points := range awards {
		AddExperience(user, points)
		if want := LevelForExperience(user.Experience); user.Level != want {
			t.Fatalf("after award of %d: level = %d, want %d", points, user.Level, want)
		}
	}
}

func TestAddExperienceIgnoresNonPositive(t *testing.T) {
	user := &models.User{Level: 3, Experience: 500, Points: 500}

	if AddExperience(user, 0) || AddExperience(user, -10) {
		t.Error("non-positive awards must not report a level-up")
	}
	if user.Experience != 500 || user.Points != 500 || user.Level != 3 {
		t.Errorf("user mutated by non-positive award: %+v", user)
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	// A user whose stored level is already above the formula (e.g. from a
	// legacy import) keeps it.
	user := &models.User{Level: 5, Experience: 0}
	AddExperience(user, 100)
	if user.Level != 5 {
		t.Errorf("level decreased to %d", user.Level)
	}
}
