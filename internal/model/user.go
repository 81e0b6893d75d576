// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// Two sign-in paths produce users:
//   - email/password registration (PasswordHash is set, GitHubID is 0)
//   - GitHub OAuth (GitHubID is set, PasswordHash is empty)
//
// TotalPoints only ever grows — every check-in awards 10 × streak points.
// Level is derived, never stored independently: floor(totalPoints/100) + 1.
// We persist it anyway so list queries don't recompute it, but the check-in
// service is the single writer and always keeps the two in sync.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized to clients
	GitHubID     int64     `json:"-"` // 0 for password accounts
	AvatarURL    string    `json:"avatar"`
	TotalPoints  int       `json:"totalPoints"`
	Level        int       `json:"level"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LevelForPoints computes the level a point total corresponds to.
// Every 100 points is one level, starting at level 1.
func LevelForPoints(totalPoints int) int {
	return totalPoints/100 + 1
}
