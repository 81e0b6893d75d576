package model

import "time"

// Habit categories. The zero value on the wire defaults to CategoryOther.
const (
	CategoryHealth       = "health"
	CategoryFitness      = "fitness"
	CategoryLearning     = "learning"
	CategoryProductivity = "productivity"
	CategoryMindfulness  = "mindfulness"
	CategorySocial       = "social"
	CategoryOther        = "other"
)

// Habit frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// ValidCategory reports whether c is one of the known habit categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryHealth, CategoryFitness, CategoryLearning,
		CategoryProductivity, CategoryMindfulness, CategorySocial, CategoryOther:
		return true
	}
	return false
}

// ValidFrequency reports whether f is one of the known habit frequencies.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Habit is a user-owned recurring activity.
//
// CurrentStreak, LongestStreak, and TotalCompletions are denormalized caches
// mirrored from the habit's Streak record on every check-in. They exist so the
// habit list and dashboard never need a join. The invariant
// LongestStreak >= CurrentStreak must hold after every check-in update.
type Habit struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Frequency        string    `json:"frequency"`
	FrequencyDays    int       `json:"frequencyDays"`
	TargetCount      int       `json:"targetCount"`
	Unit             string    `json:"unit"`
	Priority         int       `json:"priority"` // 1 (low) to 5 (high)
	Color            string    `json:"color"`
	Icon             string    `json:"icon"`
	CurrentStreak    int       `json:"currentStreak"`
	LongestStreak    int       `json:"longestStreak"`
	TotalCompletions int       `json:"totalCompletions"`
	IsActive         bool      `json:"isActive"`
	ReminderTime     string    `json:"reminderTime"` // "HH:MM", local server time
	ReminderEnabled  bool      `json:"reminderEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
