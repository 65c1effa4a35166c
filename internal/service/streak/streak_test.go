package streak

import (
	"testing"
	"time"
)

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 12, 0, 0, 0, time.UTC)
}

func TestComputeEmptyHistory(t *testing.T) {
	got := Compute(nil, day(2026, 9, 1))
	if got.Current != 0 || got.Longest != 0 {
		t.Errorf("Compute(nil) = %+v, want zero streaks", got)
	}
}

func TestComputeSingleDay(t *testing.T) {
	got := Compute([]time.Time{day(2026, 9, 1)}, day(2026, 9, 1))
	if got.Current != 1 {
		t.Errorf("current = %d, want 1", got.Current)
	}
	if got.Longest != 1 {
		t.Errorf("longest = %d, want 1", got.Longest)
	}
}

func TestComputeConsecutiveRun(t *testing.T) {
	actions := []time.Time{
		day(2026, 8, 28),
		day(2026, 8, 29),
		day(2026, 8, 30),
		day(2026, 8, 31),
		day(2026, 9, 1),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 5 {
		t.Errorf("current = %d, want 5", got.Current)
	}
	if got.Longest != 5 {
		t.Errorf("longest = %d, want 5", got.Longest)
	}
}

func TestComputeStopsAtGap(t *testing.T) {
	actions := []time.Time{
		day(2026, 8, 25), // isolated
		day(2026, 8, 31),
		day(2026, 9, 1),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 2 {
		t.Errorf("current = %d, want 2", got.Current)
	}
}

func TestComputeNoActionTodayKeepsYesterdayStreak(t *testing.T) {
	actions := []time.Time{
		day(2026, 8, 30),
		day(2026, 8, 31),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 2 {
		t.Errorf("current = %d, want 2 (streak alive until today ends)", got.Current)
	}
}

func TestComputeBrokenStreak(t *testing.T) {
	actions := []time.Time{
		day(2026, 8, 28),
		day(2026, 8, 29),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 0 {
		t.Errorf("current = %d, want 0 (last action two days before reference)", got.Current)
	}
	if got.Longest != 2 {
		t.Errorf("longest = %d, want 2", got.Longest)
	}
}

func TestComputeLongestElsewhereInHistory(t *testing.T) {
	actions := []time.Time{
		// A four-day run earlier in the month.
		day(2026, 8, 10),
		day(2026, 8, 11),
		day(2026, 8, 12),
		day(2026, 8, 13),
		// Current two-day run.
		day(2026, 8, 31),
		day(2026, 9, 1),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 2 {
		t.Errorf("current = %d, want 2", got.Current)
	}
	if got.Longest != 4 {
		t.Errorf("longest = %d, want 4", got.Longest)
	}
}

func TestComputeMultipleActionsSameDay(t *testing.T) {
	actions := []time.Time{
		time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC),
		day(2026, 8, 31),
	}
	got := Compute(actions, day(2026, 9, 1))
	if got.Current != 2 {
		t.Errorf("current = %d, want 2 (same-day actions collapse)", got.Current)
	}
}

func TestComputeIdempotent(t *testing.T) {
	actions := []time.Time{day(2026, 8, 31), day(2026, 9, 1)}
	ref := day(2026, 9, 1)

	first := Compute(actions, ref)
	second := Compute(actions, ref)
	if first != second {
		t.Errorf("recomputation not idempotent: %+v vs %+v", first, second)
	}
}
