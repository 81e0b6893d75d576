package model

import "time"

// CheckIn records that a habit was performed (or at least attempted) on one
// calendar day. Date is always truncated to midnight, so the natural key
// (UserID, HabitID, Date) identifies at most one record per day — checking in
// twice on the same day updates the existing record in place.
//
// Streak and PointsEarned capture the values at the moment of the check-in,
// so historical records keep the streak they were part of even after the
// streak later breaks.
type CheckIn struct {
	ID           string    `json:"id"`
	HabitID      string    `json:"habitId"`
	UserID       string    `json:"userId"`
	Date         time.Time `json:"date"`
	Completed    bool      `json:"completed"`
	Count        int       `json:"count"`
	Note         string    `json:"note"`
	Streak       int       `json:"streak"`
	PointsEarned int       `json:"pointsEarned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Day truncates t to midnight in its own location. All check-in date
// comparisons go through this so "same day" always means "same calendar day".
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
