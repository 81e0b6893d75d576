// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the one real
// implementation; tests substitute in-memory mocks.
//
// Method names are entity-qualified (CreateHabit, not Create) because a
// single sqlite.DB value implements every interface here — the server hands
// the same value to each service under the interface it needs.
package repository

import (
	"context"
	"time"

	"github.com/sakif/habitflow/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertUserByGitHubID inserts a user on first OAuth login and refreshes
	// the profile fields on later logins, preserving the internal ID and
	// accumulated points.
	UpsertUserByGitHubID(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
}

type HabitRepository interface {
	CreateHabit(ctx context.Context, habit *model.Habit) error
	GetHabitByID(ctx context.Context, id string) (*model.Habit, error)
	ListHabitsByUser(ctx context.Context, userID string) ([]model.Habit, error)
	ListHabitsByCategory(ctx context.Context, userID, category string) ([]model.Habit, error)
	// ListActiveHabits returns active habits across all users. Used by the
	// reminder sweep and the nightly snapshot job.
	ListActiveHabits(ctx context.Context) ([]model.Habit, error)
	UpdateHabit(ctx context.Context, habit *model.Habit) error
	// DeleteHabit removes the habit together with its streak record and all
	// of its check-ins in a single transaction.
	DeleteHabit(ctx context.Context, id string) error
}

type StreakRepository interface {
	CreateStreak(ctx context.Context, streak *model.Streak) error
	GetStreakByHabit(ctx context.Context, userID, habitID string) (*model.Streak, error)
	ListStreaksByUser(ctx context.Context, userID string) ([]model.Streak, error)
	UpdateStreak(ctx context.Context, streak *model.Streak) error
}

type CheckInRepository interface {
	GetCheckInByID(ctx context.Context, id string) (*model.CheckIn, error)
	// GetCheckInByDay looks up the check-in for the natural key
	// (user, habit, day). Returns apperror.ErrNotFound when no record exists.
	GetCheckInByDay(ctx context.Context, userID, habitID string, day time.Time) (*model.CheckIn, error)
	ListCheckInsByHabit(ctx context.Context, userID, habitID string) ([]model.CheckIn, error)
	// ListCheckInsByHabitSince returns one habit's check-ins with date >= since.
	ListCheckInsByHabitSince(ctx context.Context, userID, habitID string, since time.Time) ([]model.CheckIn, error)
	// ListCheckInsByRange returns the user's check-ins with
	// from <= date <= to, newest first, across all habits.
	ListCheckInsByRange(ctx context.Context, userID string, from, to time.Time) ([]model.CheckIn, error)
	// CountCompletedOnDay counts completed check-ins for the user on one day.
	CountCompletedOnDay(ctx context.Context, userID string, day time.Time) (int, error)
	CountCompletedByHabit(ctx context.Context, userID, habitID string) (int, error)
	UpdateCheckIn(ctx context.Context, checkIn *model.CheckIn) error
	DeleteCheckIn(ctx context.Context, id string) error

	// SaveCheckInBatch persists everything a single check-in mutates —
	// the check-in itself, the streak, the habit aggregates, and the user's
	// points — in one transaction so a failure leaves no partial update.
	SaveCheckInBatch(ctx context.Context, batch *CheckInBatch) error
}

// CheckInBatch groups the four records mutated by one recorded check-in.
// Streak may be nil for legacy habits created without a streak record.
type CheckInBatch struct {
	CheckIn *model.CheckIn
	Streak  *model.Streak
	Habit   *model.Habit
	User    *model.User
}

type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, challenge *model.Challenge) error
	GetChallengeByID(ctx context.Context, id string) (*model.Challenge, error)
	ListActiveChallenges(ctx context.Context) ([]model.Challenge, error)
	ListChallengesByParticipant(ctx context.Context, userID string) ([]model.Challenge, error)
	AddParticipant(ctx context.Context, challengeID string, p *model.Participant) error
	// UpdateParticipants rewrites completions and scores for all participants.
	UpdateParticipants(ctx context.Context, challengeID string, ps []model.Participant) error
	SetChallengeActive(ctx context.Context, challengeID string, active bool) error
}

type AnalyticsRepository interface {
	// SaveSnapshot inserts or replaces the snapshot for (user, habit, date).
	SaveSnapshot(ctx context.Context, snap *model.AnalyticsSnapshot) error
	ListSnapshots(ctx context.Context, userID, habitID string, opts ListOptions) ([]model.AnalyticsSnapshot, error)
}
