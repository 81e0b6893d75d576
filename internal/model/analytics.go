package model

import "time"

// AnalyticsSnapshot is a per-(user, habit, day) cache of computed metrics,
// written by the nightly snapshot job. The live analytics endpoints compute
// from check-in records directly; snapshots give a cheap history to chart
// without rescanning months of check-ins.
type AnalyticsSnapshot struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	HabitID            string    `json:"habitId"`
	Date               time.Time `json:"date"`
	CompletionRate     float64   `json:"completionRate"` // trailing 30 days, percent
	WeeklyCompletions  int       `json:"weeklyCompletions"`
	MonthlyCompletions int       `json:"monthlyCompletions"`
	AverageStreak      float64   `json:"averageStreak"`
	BestDay            string    `json:"bestDay"` // weekday with the most completions
	UpdatedAt          time.Time `json:"updatedAt"`
}
