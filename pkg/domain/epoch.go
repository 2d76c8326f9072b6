package domain

import "time"

// Epoch window lengths. Rolling windows measured from the progress row's
// lastResetAt, not calendar-aligned boundaries.
const (
	DailyEpoch  = 24 * time.Hour
	WeeklyEpoch = 7 * 24 * time.Hour
)

// ShouldReset reports whether a quest's progress window has elapsed and the
// next trigger is allowed to start a fresh count. NONE-recurrence quests
// never reset: once completed they stay completed forever. This function
// never fails or blocks.
func ShouldReset(quest *Quest, progress *QuestProgress, now time.Time) bool {
	window, ok := EpochDuration(quest.Recurrence)
	if !ok {
		return false
	}
	return now.Sub(progress.LastResetAt) >= window
}

// EpochDuration returns the window length for a recurrence. The second
// return value is false for NONE (and unknown) recurrences, which have no
// window at all.
func EpochDuration(r Recurrence) (time.Duration, bool) {
	switch r {
	case RecurrenceDaily:
		return DailyEpoch, true
	case RecurrenceWeekly:
		return WeeklyEpoch, true
	default:
		return 0, false
	}
}
