package model

import "time"

// Challenge frequencies.
const (
	ChallengeDaily   = "daily"
	ChallengeWeekly  = "weekly"
	ChallengeMonthly = "monthly"
)

// Challenge is a shared, time-boxed competition among users. The creator is
// always the first participant. Scores are recomputed on demand (see
// ChallengeService.UpdateScores), not continuously maintained.
type Challenge struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CreatorID    string        `json:"creatorId"`
	Participants []Participant `json:"participants"`
	HabitID      string        `json:"habitId,omitempty"` // optional link to a specific habit
	Frequency    string        `json:"frequency"`
	Duration     int           `json:"duration"` // days
	StartDate    time.Time     `json:"startDate"`
	EndDate      time.Time     `json:"endDate"`
	Rewards      string        `json:"rewards"`
	IsActive     bool          `json:"isActive"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Participant is one user's entry in a challenge.
// Score is derived: completions × 10.
type Participant struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar"`
	JoinedAt    time.Time `json:"joinedAt"`
	Completions int       `json:"completions"`
	Score       int       `json:"score"`
}

// LeaderboardEntry is a ranked row of a challenge leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar"`
	Completions int    `json:"completions"`
	Score       int    `json:"score"`
}
