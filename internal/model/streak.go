package model

import "time"

// Streak tracks consecutive-day completion for one (user, habit) pair.
// It is created together with its Habit and deleted with it.
//
// Invariants maintained by the check-in service:
//   - CurrentStreak resets to 1 whenever the previous calendar day has no
//     completed check-in.
//   - LongestStreak is monotonically non-decreasing; it absorbs CurrentStreak
//     at the moment a streak breaks.
type Streak struct {
	ID              string      `json:"id"`
	HabitID         string      `json:"habitId"`
	UserID          string      `json:"userId"`
	CurrentStreak   int         `json:"currentStreak"`
	LongestStreak   int         `json:"longestStreak"`
	LastCheckIn     *time.Time  `json:"lastCheckIn"` // nil until the first check-in
	CompletionDates []time.Time `json:"completionDates"`
	MissedDates     []time.Time `json:"missedDates"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
